package service

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prperemyshlev/slangdex/internal/catalog"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommunityService(t *testing.T) (*CommunityService, *clockwork.FakeClock) {
	t.Helper()

	seed, err := catalog.Community()
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(testNow)
	svc, err := NewCommunityService(seed, CommunityOptions{
		PostsPerMinute: 1,
		PostBurst:      2,
		MaxPostLength:  40,
	}, clock, nil)
	require.NoError(t, err)

	return svc, clock
}

var amy = domain.Author{ID: "u1", Username: "amy", AvatarURL: "https://example.com/amy.png"}

func TestCommunity_SeedFeedIsNewestFirst(t *testing.T) {
	svc, _ := newCommunityService(t)

	posts := svc.ListPosts("")
	require.NotEmpty(t, posts)
	assert.Equal(t, "1", posts[0].ID)
	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i].Timestamp.After(posts[i-1].Timestamp))
	}
	assert.Equal(t, []string{"rizz", "slangmaster"}, posts[0].Tags)
}

func TestCommunity_CreatePost(t *testing.T) {
	svc, _ := newCommunityService(t)

	p, err := svc.CreatePost(context.Background(), amy, "  <b>no cap</b> it's #Rizz #rizz #NewTag ")
	require.NoError(t, err)

	assert.Equal(t, "no cap it's #Rizz #rizz #NewTag", p.Content)
	assert.Equal(t, []string{"rizz", "newtag"}, p.Tags)
	assert.Equal(t, "amy", p.Username)
	assert.Equal(t, testNow, p.Timestamp)
	assert.NotEmpty(t, p.ID)

	assert.Equal(t, p.ID, svc.ListPosts("u1")[0].ID)

	topics := svc.TrendingTopics(2)
	assert.Equal(t, []domain.Topic{{Tag: "rizz", Count: 424}, {Tag: "slay", Count: 356}}, topics)
	assert.Contains(t, svc.TrendingTopics(0), domain.Topic{Tag: "newtag", Count: 1})
}

func TestCommunity_CreatePostRejectsBadContent(t *testing.T) {
	svc, _ := newCommunityService(t)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, amy, "   <i></i>  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreatePost(ctx, amy, "this post is definitely going to be longer than forty characters")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCommunity_PostRateLimit(t *testing.T) {
	svc, clock := newCommunityService(t)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, amy, "one")
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, amy, "two")
	require.NoError(t, err)

	_, err = svc.CreatePost(ctx, amy, "three")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = svc.CreatePost(ctx, domain.Author{ID: "u2", Username: "bo"}, "other author")
	assert.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = svc.CreatePost(ctx, amy, "three")
	assert.NoError(t, err)
}

func TestCommunity_ToggleLike(t *testing.T) {
	svc, _ := newCommunityService(t)

	p, err := svc.ToggleLike("2", "u1")
	require.NoError(t, err)
	assert.Equal(t, 90, p.Likes)
	assert.True(t, p.IsLiked)

	for _, post := range svc.ListPosts("u1") {
		if post.ID == "2" {
			assert.True(t, post.IsLiked)
		}
	}
	for _, post := range svc.ListPosts("u2") {
		if post.ID == "2" {
			assert.False(t, post.IsLiked)
		}
	}

	p, err = svc.ToggleLike("2", "u1")
	require.NoError(t, err)
	assert.Equal(t, 89, p.Likes)
	assert.False(t, p.IsLiked)

	_, err = svc.ToggleLike("nope", "u1")
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestQuizService(t *testing.T) {
	quizzes, err := catalog.Quizzes()
	require.NoError(t, err)
	svc := NewQuizService(quizzes)

	assert.Len(t, svc.List(""), len(quizzes))
	assert.Len(t, svc.List("All"), len(quizzes))
	for _, q := range svc.List("tiktok") {
		assert.Equal(t, "TikTok", q.Category)
	}
	assert.NotEmpty(t, svc.List("TikTok"))

	for _, q := range svc.Featured() {
		assert.True(t, q.IsFeatured)
	}

	q, err := svc.Get("q1")
	require.NoError(t, err)
	assert.Equal(t, "Brainrot Basics", q.Title)

	_, err = svc.Get("q404")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
}
