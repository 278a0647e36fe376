package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/ranker"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/sqlite"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	client, err := sqlite.New(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	s, err := New(client.DB, SQLite)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestNewRejectsUnknownDialect(t *testing.T) {
	_, err := New(nil, Dialect("mysql"))
	assert.Error(t, err)
}

func TestSaveAndLatest(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_, err := s.Save(ctx, corpus.Listing{
		Category:      "animals",
		Resolution:    1,
		Normalization: "max_global",
		Samples:       3,
		Vocabulary:    2,
		List:          ranker.List{{Token: "cat", Score: 0.1}},
	})
	require.NoError(t, err)

	top := 2
	s.now = func() time.Time { return base.Add(time.Hour) }
	id, err := s.Save(ctx, corpus.Listing{
		Category:      "animals",
		Resolution:    5,
		Normalization: "num_lists",
		MaxFeatures:   &top,
		Samples:       4,
		Vocabulary:    3,
		List: ranker.List{
			{Token: "dog", Score: 0.7001},
			{Token: "cat", Score: 0.3667},
		},
	})
	require.NoError(t, err)

	run, err := s.Latest(ctx, "animals")
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, 5, run.Resolution)
	assert.Equal(t, "num_lists", run.Normalization)
	require.NotNil(t, run.MaxFeatures)
	assert.Equal(t, 2, *run.MaxFeatures)
	assert.Equal(t, 4, run.Samples)
	assert.Equal(t, []string{"dog", "cat"}, run.List.Tokens())
	assert.InDelta(t, 0.7001, run.List[0].Score, 1e-12)
}

func TestLatestUnknownCategory(t *testing.T) {
	s := newSQLiteStore(t)
	_, err := s.Latest(context.Background(), "ghosts")
	assert.ErrorIs(t, err, apperrors.ErrCategoryNotFound)
}

func TestEmptyListIsStored(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, corpus.Listing{Category: "empty", Resolution: 1, Normalization: "max_global"}))

	run, err := s.Latest(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, run.List)
	assert.Nil(t, run.MaxFeatures)
}

func TestCategories(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	for _, c := range []string{"fruits", "animals", "fruits"} {
		require.NoError(t, s.Write(ctx, corpus.Listing{Category: c, Resolution: 1, Normalization: "max_word"}))
	}
	got, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"animals", "fruits"}, got)
}
