// Package corpus is the I/O boundary around the scoring core: it discovers
// category files, reads them into samples, and writes ranked lists to files,
// object storage or any other Sink.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/normalize"
)

// maxLineSize bounds a single sample line.
const maxLineSize = 4 << 20

// Category is one input file; each of its lines is a sample.
type Category struct {
	Name string
	Path string
}

// Discover walks root and returns every file whose base name matches one of
// the ';'-separated glob patterns, sorted by path. With singleLevel only the
// files directly under root are considered.
func Discover(root string, patterns string, singleLevel bool) ([]Category, error) {
	globs := strings.Split(patterns, ";")
	for _, g := range globs {
		if _, err := filepath.Match(g, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", g, err)
		}
	}
	var categories []Category
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if singleLevel && path != root {
				return fs.SkipDir
			}
			return nil
		}
		for _, g := range globs {
			if ok, _ := filepath.Match(g, d.Name()); ok {
				categories = append(categories, Category{
					Name: CategoryName(path),
					Path: path,
				})
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering categories under %s: %w", root, err)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Path < categories[j].Path
	})
	return categories, nil
}

// CategoryName is the base name of path up to its first dot.
func CategoryName(path string) string {
	name, _, _ := strings.Cut(filepath.Base(path), ".")
	return name
}

// SplitSample splits a line on single spaces. Consecutive spaces yield empty
// tokens, which keep their slot when positions are assigned.
func SplitSample(line string) []string {
	return strings.Split(line, " ")
}

// Source reads category files into samples.
type Source struct {
	normalizer *normalize.Normalizer
	byInstance bool
}

// NewSource returns a Source. A nil normalizer leaves tokens untouched. With
// byInstance the whole file is read as a single sample.
func NewSource(normalizer *normalize.Normalizer, byInstance bool) *Source {
	return &Source{normalizer: normalizer, byInstance: byInstance}
}

// Load reads every sample of a category.
func (s *Source) Load(c Category) ([][]string, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("opening category %s: %w", c.Name, err)
	}
	defer f.Close()
	if s.byInstance {
		return ReadInstance(f, s.normalizer)
	}
	return ReadSamples(f, s.normalizer)
}

// ReadSamples reads one sample per line, stripping the line terminator.
func ReadSamples(r io.Reader, normalizer *normalize.Normalizer) ([][]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var samples [][]string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		samples = append(samples, normalizer.Sample(SplitSample(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	return samples, nil
}

// ReadInstance reads all of r as a single sample.
func ReadInstance(r io.Reader, normalizer *normalize.Normalizer) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading instance: %w", err)
	}
	line := strings.TrimRight(string(data), "\r\n")
	return [][]string{normalizer.Sample(SplitSample(line))}, nil
}
