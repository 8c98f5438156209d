package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholderWords(t *testing.T) {
	now := time.Now()
	words, err := PlaceholderWords(now)
	require.NoError(t, err)

	require.Len(t, words, 3)
	assert.Equal(t, "placeholder1", words[0].ID)
	assert.Equal(t, "Rizz", words[0].Word)
	assert.Equal(t, []string{"Social Media", "Dating"}, words[0].Categories)
	assert.Equal(t, now, words[0].CreatedAt)
	assert.Equal(t, "Bussin", words[2].Word)
}

func TestTrendingSeed(t *testing.T) {
	words, err := TrendingSeed(time.Now())
	require.NoError(t, err)

	require.Len(t, words, 10)
	ids := make(map[string]bool)
	for _, w := range words {
		assert.True(t, w.IsTrending)
		assert.NotEmpty(t, w.Definition, w.ID)
		assert.False(t, ids[w.ID], "duplicate id %s", w.ID)
		ids[w.ID] = true
	}
	assert.True(t, ids["no-cap"])
	assert.True(t, ids["vibe-check"])
}

func TestQuizzes(t *testing.T) {
	quizzes, err := Quizzes()
	require.NoError(t, err)

	require.Len(t, quizzes, 6)
	assert.Equal(t, "Brainrot Basics", quizzes[0].Title)
	assert.True(t, quizzes[0].IsFeatured)
	assert.Equal(t, "Gaming", quizzes[5].Category)
}

func TestCommunity(t *testing.T) {
	seed, err := Community()
	require.NoError(t, err)

	assert.Equal(t, 423, seed.Topics["rizz"])
	require.Len(t, seed.Posts, 4)
	assert.Equal(t, "slayqueen", seed.Posts[0].Username)
	assert.Equal(t, 15*time.Minute, seed.Posts[0].Age)
	assert.Equal(t, "https://picsum.photos/id/1/500/300", seed.Posts[1].ImageURL)
}
