// Package catalog holds the static data shipped with the binary: the
// placeholder words used by search fallback, the trending seed words, the
// quiz catalog and the community seed feed.
package catalog

import (
	"embed"
	"fmt"
	"time"

	"github.com/prperemyshlev/slangdex/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

type wordEntry struct {
	ID            string   `yaml:"id"`
	Word          string   `yaml:"word"`
	Definition    string   `yaml:"definition"`
	Example       string   `yaml:"example"`
	Pronunciation string   `yaml:"pronunciation"`
	Categories    []string `yaml:"categories"`
}

type postEntry struct {
	ID         string `yaml:"id"`
	Username   string `yaml:"username"`
	UserAvatar string `yaml:"userAvatar"`
	Content    string `yaml:"content"`
	MinutesAgo int    `yaml:"minutesAgo"`
	Likes      int    `yaml:"likes"`
	Comments   int    `yaml:"comments"`
	ImageURL   string `yaml:"imageUrl"`
}

type communityFile struct {
	Topics map[string]int `yaml:"topics"`
	Posts  []postEntry    `yaml:"posts"`
}

// CommunitySeed is the initial in-memory feed
type CommunitySeed struct {
	Topics map[string]int
	Posts  []SeedPost
}

// SeedPost is a feed entry positioned relative to process start
type SeedPost struct {
	ID         string
	Username   string
	UserAvatar string
	Content    string
	Age        time.Duration
	Likes      int
	Comments   int
	ImageURL   string
}

// PlaceholderWords returns the fallback word list. now stamps createdAt/updatedAt.
func PlaceholderWords(now time.Time) ([]*domain.Word, error) {
	return loadWords("data/placeholder_words.yaml", now)
}

// TrendingSeed returns the words loaded into the search index by the seed command
func TrendingSeed(now time.Time) ([]*domain.Word, error) {
	return loadWords("data/trending_words.yaml", now)
}

// Quizzes returns the mocked quiz catalog
func Quizzes() ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	if err := decode("data/quizzes.yaml", &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// Community returns the seed feed and topic counts
func Community() (*CommunitySeed, error) {
	var file communityFile
	if err := decode("data/community.yaml", &file); err != nil {
		return nil, err
	}

	seed := &CommunitySeed{Topics: file.Topics}
	for _, p := range file.Posts {
		seed.Posts = append(seed.Posts, SeedPost{
			ID:         p.ID,
			Username:   p.Username,
			UserAvatar: p.UserAvatar,
			Content:    p.Content,
			Age:        time.Duration(p.MinutesAgo) * time.Minute,
			Likes:      p.Likes,
			Comments:   p.Comments,
			ImageURL:   p.ImageURL,
		})
	}
	return seed, nil
}

func loadWords(name string, now time.Time) ([]*domain.Word, error) {
	var entries []wordEntry
	if err := decode(name, &entries); err != nil {
		return nil, err
	}

	words := make([]*domain.Word, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || e.Word == "" {
			return nil, fmt.Errorf("%s: entry without id or word", name)
		}
		words = append(words, &domain.Word{
			ID:            e.ID,
			Word:          e.Word,
			Definition:    e.Definition,
			Example:       e.Example,
			Pronunciation: e.Pronunciation,
			Categories:    e.Categories,
			IsTrending:    true,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return words, nil
}

func decode(name string, out any) error {
	data, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
