package service

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/repository"
	"github.com/prperemyshlev/slangdex/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	placeholderDefinition = "This is a placeholder definition for a word that exists in our system " +
		"but detailed information is not available."
	placeholderCategory = "Placeholder"
)

// SearchOptions configures SearchService
type SearchOptions struct {
	DefaultLimit      int
	ResultLimit       int
	SynthesizeMissing bool
}

// SearchService answers word queries from the index, falling back to the
// bundled placeholder words whenever the index cannot.
type SearchService struct {
	index        WordIndex
	placeholders []*domain.Word
	opts         SearchOptions
	clock        clockwork.Clock
	logger       *zap.Logger
	fallbacks    metric.Int64Counter
}

// NewSearchService creates a search service. A nil index means search is
// disabled and every query is answered from placeholders.
func NewSearchService(index WordIndex, placeholders []*domain.Word, opts SearchOptions, clock clockwork.Clock, logger *zap.Logger) *SearchService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{
		index:        index,
		placeholders: placeholders,
		opts:         opts,
		clock:        clock,
		logger:       logger,
		fallbacks: observability.Int64Counter("slangdex/search", "slangdex_search_fallbacks_total",
			"Queries answered from placeholder words"),
	}
}

// Search returns the words matching query. It never fails: a blank query
// returns trending words, and index errors fall back to filtering the
// placeholders on word and definition.
func (s *SearchService) Search(ctx context.Context, query string) []*domain.Word {
	if strings.TrimSpace(query) == "" {
		return s.Trending(s.opts.DefaultLimit)
	}

	if s.index == nil {
		s.countFallback(ctx, "disabled")
		return s.filterPlaceholders(query)
	}

	words, err := s.index.Search(ctx, query, s.opts.ResultLimit)
	if err != nil {
		reason := "error"
		if errors.Is(err, repository.ErrIndexNotFound) {
			reason = "index_not_found"
			s.logger.Info("word index does not exist, using placeholder words")
		} else {
			s.logger.Warn("word search failed", zap.String("query", query), zap.Error(err))
		}
		s.countFallback(ctx, reason)
		return s.filterPlaceholders(query)
	}

	return words
}

// Trending returns the first limit placeholder words
func (s *SearchService) Trending(limit int) []*domain.Word {
	if limit <= 0 {
		return []*domain.Word{}
	}
	limit = min(limit, len(s.placeholders))

	out := make([]*domain.Word, 0, limit)
	for _, w := range s.placeholders[:limit] {
		out = append(out, w.Clone())
	}
	return out
}

// GetByID resolves id against the placeholders, then the index by id or
// word, then by loose match against placeholder words. Anything left is
// synthesized from the id unless synthesis is disabled.
func (s *SearchService) GetByID(ctx context.Context, id string) (*domain.Word, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrWordNotFound
	}

	for _, w := range s.placeholders {
		if w.ID == id {
			return w.Clone(), nil
		}
	}

	if s.index != nil {
		normalized := strings.ReplaceAll(strings.ToLower(id), "-", " ")
		word, err := s.index.Lookup(ctx, id, normalized)
		switch {
		case err == nil:
			return word, nil
		case errors.Is(err, repository.ErrNotFound):
		default:
			s.logger.Warn("word lookup failed", zap.String("word_id", id), zap.Error(err))
		}
	}

	lowered := strings.ToLower(id)
	for _, w := range s.placeholders {
		word := strings.ToLower(w.Word)
		if word == lowered || strings.Contains(word, lowered) || strings.Contains(lowered, word) {
			return w.Clone(), nil
		}
	}

	if !s.opts.SynthesizeMissing {
		return nil, domain.ErrWordNotFound
	}

	s.countFallback(ctx, "synthesized")
	now := s.clock.Now()
	return &domain.Word{
		ID:         id,
		Word:       synthesizeWord(id),
		Definition: placeholderDefinition,
		Categories: []string{placeholderCategory},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *SearchService) filterPlaceholders(query string) []*domain.Word {
	q := strings.ToLower(strings.TrimSpace(query))

	out := []*domain.Word{}
	for _, w := range s.placeholders {
		if strings.Contains(strings.ToLower(w.Word), q) || strings.Contains(strings.ToLower(w.Definition), q) {
			out = append(out, w.Clone())
		}
	}
	return out
}

func (s *SearchService) countFallback(ctx context.Context, reason string) {
	s.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// synthesizeWord capitalizes the first letter and turns hyphens into spaces
func synthesizeWord(id string) string {
	r, size := utf8.DecodeRuneInString(id)
	return string(unicode.ToUpper(r)) + strings.ReplaceAll(id[size:], "-", " ")
}
