package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/resilience"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunWritesEveryCategory(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFile(t, in, "animals.txt", "cat dog\ndog bird cat\ndog\n")
	writeFile(t, in, "colors.txt", "red blue\r\nblue\r\n")

	categories, err := corpus.Discover(in, "*.txt", false)
	require.NoError(t, err)
	require.Len(t, categories, 2)

	svc := scoring.New(scoring.Options{
		Defaults: scoring.Defaults{Resolution: 1, Normalization: "max_global"},
		Sinks:    []scoring.NamedSink{{Name: "file", Sink: corpus.NewFileSink(out, "\t")}},
	})
	report := New(corpus.NewSource(nil, false), svc, 2).Run(context.Background(), categories)
	require.NoError(t, report.Err())

	assert.Equal(t, "animals", report.Results[0].Category.Name)
	assert.Equal(t, 3, report.Results[0].Samples)
	assert.Equal(t, 3, report.Results[0].Ranked)
	assert.Equal(t, "colors", report.Results[1].Category.Name)

	data, err := os.ReadFile(filepath.Join(out, "IDLV_list_animals_1r.idl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^dog\t0\.700`, lines[0])
	assert.Regexp(t, `^cat\t0\.366`, lines[1])
	assert.Regexp(t, `^bird\t`, lines[2])

	_, err = os.Stat(filepath.Join(out, "IDLV_list_colors_1r.idl"))
	assert.NoError(t, err)
}

type flakyLoader struct {
	inner Loader
	fail  string
}

func (l flakyLoader) Load(c corpus.Category) ([][]string, error) {
	if c.Name == l.fail {
		return nil, errors.New("permission denied")
	}
	return l.inner.Load(c)
}

func TestRunIsolatesFailures(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFile(t, in, "a.txt", "x y\n")
	writeFile(t, in, "b.txt", "y z\n")
	writeFile(t, in, "c.txt", "z x\n")
	categories, err := corpus.Discover(in, "*.txt", true)
	require.NoError(t, err)

	svc := scoring.New(scoring.Options{
		Defaults: scoring.Defaults{Resolution: 1, Normalization: "num_lists"},
		Sinks:    []scoring.NamedSink{{Name: "file", Sink: corpus.NewFileSink(out, "")}},
	})
	loader := flakyLoader{inner: corpus.NewSource(nil, false), fail: "b"}
	report := New(loader, svc, 3).Run(context.Background(), categories)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].Category.Name)
	assert.ErrorContains(t, report.Err(), "b: permission denied")

	for _, name := range []string{"a", "c"} {
		_, err := os.Stat(filepath.Join(out, corpus.FileName(name, 1)))
		assert.NoError(t, err, name)
	}
}

type failingSink struct{}

func (failingSink) Write(context.Context, corpus.Listing) error { return errors.New("bucket gone") }

func TestRunReportsSinkFailure(t *testing.T) {
	in := t.TempDir()
	writeFile(t, in, "a.txt", "x\n")
	categories, err := corpus.Discover(in, "*.txt", true)
	require.NoError(t, err)

	svc := scoring.New(scoring.Options{
		Defaults: scoring.Defaults{Resolution: 1, Normalization: "max_word"},
		Sinks: []scoring.NamedSink{{
			Name:   "objects",
			Sink:   failingSink{},
			Policy: resilience.Policy{Retry: resilience.RetryConfig{MaxAttempts: 1}},
		}},
	})
	report := New(corpus.NewSource(nil, false), svc, 1).Run(context.Background(), categories)
	assert.ErrorContains(t, report.Err(), "bucket gone")
	assert.Equal(t, 1, report.Results[0].Ranked)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := scoring.New(scoring.Options{Defaults: scoring.Defaults{Resolution: 1}})
	report := New(corpus.NewSource(nil, false), svc, 1).Run(ctx, []corpus.Category{{Name: "a", Path: "missing"}})
	assert.ErrorIs(t, report.Err(), context.Canceled)
}
