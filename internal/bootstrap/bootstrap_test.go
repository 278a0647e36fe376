package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Scoring.OutputDir = t.TempDir()
	cfg.Store.Driver = "sqlite3"
	cfg.SQLite.Path = ":memory:"
	cfg.Redis.Enabled = false
	cfg.Kafka.Enabled = false
	cfg.ObjectStore.Enabled = false
	return cfg
}

func TestBuildWiresFileAndStore(t *testing.T) {
	cfg := testConfig(t)
	c, err := Build(context.Background(), cfg, Options{FileSink: true, Cache: true, Events: true})
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Store)
	assert.Nil(t, c.Cache)
	assert.Equal(t, []string{"store"}, c.Health.Names())
	assert.True(t, c.Service.HasSinks())

	ctx := context.Background()
	out, err := c.Service.Score(ctx, scoring.Request{Category: "animals", Samples: [][]string{{"cat", "dog"}}})
	require.NoError(t, err)
	require.NoError(t, c.Service.Emit(ctx, out.Listing))

	_, err = os.Stat(filepath.Join(cfg.Scoring.OutputDir, "IDLV_list_animals_1r.idl"))
	assert.NoError(t, err)
	run, err := c.Store.Latest(ctx, "animals")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, run.List.Tokens())
}

func TestBuildWithoutBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = ""
	c, err := Build(context.Background(), cfg, Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Store)
	assert.False(t, c.Service.HasSinks())
	assert.Empty(t, c.Health.Names())
}

func TestBuildRejectsUnknownStemmer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Normalize.StemLanguage = "klingon"
	_, err := Build(context.Background(), cfg, Options{})
	assert.Error(t, err)
}
