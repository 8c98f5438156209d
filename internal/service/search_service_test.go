package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prperemyshlev/slangdex/internal/catalog"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	words []*domain.Word
	err   error
}

func (f *fakeIndex) Search(ctx context.Context, query string, limit int) ([]*domain.Word, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Word
	for _, w := range f.words {
		if strings.Contains(strings.ToLower(w.Word), strings.ToLower(query)) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeIndex) Lookup(ctx context.Context, id, normalizedWord string) (*domain.Word, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, w := range f.words {
		if w.ID == id || strings.ToLower(w.Word) == normalizedWord {
			return w, nil
		}
	}
	return nil, fmt.Errorf("word %s: %w", id, repository.ErrNotFound)
}

func newSearchService(t *testing.T, index WordIndex, synthesize bool) *SearchService {
	t.Helper()

	placeholders, err := catalog.PlaceholderWords(testNow)
	require.NoError(t, err)

	opts := SearchOptions{DefaultLimit: 10, ResultLimit: 20, SynthesizeMissing: synthesize}
	return NewSearchService(index, placeholders, opts, clockwork.NewFakeClockAt(testNow), nil)
}

func ids(words []*domain.Word) []string {
	out := []string{}
	for _, w := range words {
		out = append(out, w.ID)
	}
	return out
}

func TestSearch_BlankQueryIsTrending(t *testing.T) {
	svc := newSearchService(t, &fakeIndex{}, true)

	for _, q := range []string{"", "   ", "\t"} {
		if diff := cmp.Diff(svc.Trending(10), svc.Search(context.Background(), q)); diff != "" {
			t.Errorf("Search(%q) mismatch (-want +got):\n%s", q, diff)
		}
	}
}

func TestSearch_FallsBackToPlaceholders(t *testing.T) {
	tests := []struct {
		name  string
		index WordIndex
		query string
		want  []string
	}{
		{"index missing", &fakeIndex{err: repository.ErrIndexNotFound}, "GOOD", []string{"placeholder3"}},
		{"index failing", &fakeIndex{err: errors.New("boom")}, "sla", []string{"placeholder2"}},
		{"index disabled", nil, "rizz", []string{"placeholder1"}},
		{"matches definition", nil, "  impressively ", []string{"placeholder2"}},
		{"no match", nil, "skibidi", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newSearchService(t, tt.index, true)
			assert.Equal(t, tt.want, ids(svc.Search(context.Background(), tt.query)))
		})
	}
}

func TestSearch_UsesIndex(t *testing.T) {
	index := &fakeIndex{words: []*domain.Word{
		{ID: "w1", Word: "no cap"},
		{ID: "w2", Word: "cap"},
		{ID: "w3", Word: "mid"},
	}}
	svc := newSearchService(t, index, true)

	assert.Equal(t, []string{"w1", "w2"}, ids(svc.Search(context.Background(), "cap")))
	assert.Empty(t, svc.Search(context.Background(), "rizz"))
}

func TestTrending(t *testing.T) {
	svc := newSearchService(t, nil, true)

	assert.Empty(t, svc.Trending(0))
	assert.Empty(t, svc.Trending(-3))
	assert.Equal(t, []string{"placeholder1", "placeholder2"}, ids(svc.Trending(2)))
	assert.Len(t, svc.Trending(100), 3)

	words := svc.Trending(1)
	words[0].Word = "changed"
	assert.Equal(t, "Rizz", svc.Trending(1)[0].Word)
}

func TestGetByID(t *testing.T) {
	index := &fakeIndex{words: []*domain.Word{{ID: "w1", Word: "no cap", Definition: "for real"}}}
	svc := newSearchService(t, index, true)
	ctx := context.Background()

	w, err := svc.GetByID(ctx, "placeholder2")
	require.NoError(t, err)
	assert.Equal(t, "Slay", w.Word)

	w, err = svc.GetByID(ctx, "no-cap")
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)

	w, err = svc.GetByID(ctx, "rizzler")
	require.NoError(t, err)
	assert.Equal(t, "placeholder1", w.ID)

	w, err = svc.GetByID(ctx, "skibidi-toilet")
	require.NoError(t, err)
	assert.Equal(t, &domain.Word{
		ID:         "skibidi-toilet",
		Word:       "Skibidi toilet",
		Definition: placeholderDefinition,
		Categories: []string{"Placeholder"},
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}, w)

	_, err = svc.GetByID(ctx, "")
	assert.ErrorIs(t, err, domain.ErrWordNotFound)
}

func TestGetByID_IndexErrorsFallThrough(t *testing.T) {
	svc := newSearchService(t, &fakeIndex{err: repository.ErrIndexNotFound}, true)

	w, err := svc.GetByID(context.Background(), "BUSSIN")
	require.NoError(t, err)
	assert.Equal(t, "placeholder3", w.ID)
}

func TestGetByID_SynthesisDisabled(t *testing.T) {
	svc := newSearchService(t, &fakeIndex{}, false)

	_, err := svc.GetByID(context.Background(), "skibidi")
	assert.ErrorIs(t, err, domain.ErrWordNotFound)

	w, err := svc.GetByID(context.Background(), "slay")
	require.NoError(t, err)
	assert.Equal(t, "placeholder2", w.ID)
}
