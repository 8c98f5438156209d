package service

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/jonboulle/clockwork"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prperemyshlev/slangdex/internal/catalog"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var hashtagRegex = regexp.MustCompile(`#(\w+)`)

// CommunityOptions limits what and how often users may post
type CommunityOptions struct {
	PostsPerMinute float64
	PostBurst      int
	MaxPostLength  int
}

type post struct {
	domain.Post
	likedBy map[string]struct{}
}

// CommunityService keeps the community feed in memory
type CommunityService struct {
	opts   CommunityOptions
	clock  clockwork.Clock
	logger *zap.Logger
	policy *bluemonday.Policy
	node   *snowflake.Node

	mu       sync.Mutex
	posts    []*post
	topics   map[string]int
	limiters map[string]*rate.Limiter
}

// NewCommunityService creates the feed from seed
func NewCommunityService(seed *catalog.CommunitySeed, opts CommunityOptions, clock clockwork.Clock, logger *zap.Logger) (*CommunityService, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}

	s := &CommunityService{
		opts:     opts,
		clock:    clock,
		logger:   logger,
		policy:   bluemonday.StrictPolicy(),
		node:     node,
		topics:   make(map[string]int),
		limiters: make(map[string]*rate.Limiter),
	}

	if seed != nil {
		now := clock.Now()
		for tag, count := range seed.Topics {
			s.topics[strings.ToLower(tag)] = count
		}
		for _, p := range seed.Posts {
			s.posts = append(s.posts, &post{
				Post: domain.Post{
					ID:         p.ID,
					AuthorID:   p.Username,
					Username:   p.Username,
					UserAvatar: p.UserAvatar,
					Content:    p.Content,
					Timestamp:  now.Add(-p.Age),
					Likes:      p.Likes,
					Comments:   p.Comments,
					HasImage:   p.ImageURL != "",
					ImageURL:   p.ImageURL,
					Tags:       extractTags(p.Content),
				},
				likedBy: make(map[string]struct{}),
			})
		}
	}

	return s, nil
}

// ListPosts returns the feed newest first. IsLiked is set for viewerID.
func (s *CommunityService) ListPosts(viewerID string) []domain.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p.view(viewerID))
	}
	slices.SortStableFunc(out, func(a, b domain.Post) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// CreatePost publishes content by author. Markup is stripped and hashtags
// become tags.
func (s *CommunityService) CreatePost(ctx context.Context, author domain.Author, content string) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(content)))
	if content == "" {
		return nil, fmt.Errorf("%w: post content is empty", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > s.opts.MaxPostLength {
		return nil, fmt.Errorf("%w: post is longer than %d characters", domain.ErrInvalidInput, s.opts.MaxPostLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.limiter(author.ID).AllowN(s.clock.Now(), 1) {
		return nil, fmt.Errorf("%w: posting too fast", domain.ErrRateLimited)
	}

	p := &post{
		Post: domain.Post{
			ID:         s.node.Generate().String(),
			AuthorID:   author.ID,
			Username:   author.Username,
			UserAvatar: author.AvatarURL,
			Content:    content,
			Timestamp:  s.clock.Now(),
			Tags:       extractTags(content),
		},
		likedBy: make(map[string]struct{}),
	}
	s.posts = append(s.posts, p)
	for _, tag := range p.Tags {
		s.topics[tag]++
	}

	s.logger.Debug("community post created", zap.String("post_id", p.ID), zap.String("user_id", author.ID))

	out := p.view(author.ID)
	return &out, nil
}

// ToggleLike likes postID for userID, or removes the like if present
func (s *CommunityService) ToggleLike(postID, userID string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.posts {
		if p.ID != postID {
			continue
		}
		if _, ok := p.likedBy[userID]; ok {
			delete(p.likedBy, userID)
			p.Likes--
		} else {
			p.likedBy[userID] = struct{}{}
			p.Likes++
		}
		out := p.view(userID)
		return &out, nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrPostNotFound, postID)
}

// TrendingTopics returns up to limit tags by post count
func (s *CommunityService) TrendingTopics(limit int) []domain.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := make([]domain.Topic, 0, len(s.topics))
	for tag, count := range s.topics {
		topics = append(topics, domain.Topic{Tag: tag, Count: count})
	}
	slices.SortFunc(topics, func(a, b domain.Topic) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Tag, b.Tag)
	})

	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

func (s *CommunityService) limiter(authorID string) *rate.Limiter {
	l, ok := s.limiters[authorID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.opts.PostsPerMinute/time.Minute.Seconds()), s.opts.PostBurst)
		s.limiters[authorID] = l
	}
	return l
}

func (p *post) view(viewerID string) domain.Post {
	out := p.Post
	out.Tags = slices.Clone(p.Tags)
	_, out.IsLiked = p.likedBy[viewerID]
	return out
}

func extractTags(content string) []string {
	tags := []string{}
	for _, m := range hashtagRegex.FindAllStringSubmatch(content, -1) {
		tag := strings.ToLower(m[1])
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}
