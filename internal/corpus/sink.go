package corpus

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/ranker"
)

// Listing is a computed list together with the parameters that produced it.
type Listing struct {
	Category      string      `json:"category"`
	Resolution    int         `json:"resolution"`
	Normalization string      `json:"normalization"`
	MaxFeatures   *int        `json:"max_features,omitempty"`
	Samples       int         `json:"samples"`
	Vocabulary    int         `json:"vocabulary"`
	List          ranker.List `json:"list"`
	// Coverage counts the samples that produced each ranked token. Only
	// fresh computations carry it; stored runs do not.
	Coverage map[string]int `json:"coverage,omitempty"`
}

// Sink consumes computed lists.
type Sink interface {
	Write(ctx context.Context, listing Listing) error
}

// FileName is the conventional name of a list file:
// IDLV_list_<category>_<resolution>r.idl.
func FileName(category string, resolution int) string {
	return fmt.Sprintf("IDLV_list_%s_%dr.idl", category, resolution)
}

// Encode renders a list as one "token<sep>score" line per entry.
func Encode(list ranker.List, sep string) []byte {
	var buf bytes.Buffer
	for _, e := range list {
		buf.WriteString(e.Token)
		buf.WriteString(sep)
		buf.WriteString(strconv.FormatFloat(e.Score, 'g', -1, 64))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FileSink writes each list to its own file under a directory.
type FileSink struct {
	dir string
	sep string
}

func NewFileSink(dir string, sep string) *FileSink {
	if sep == "" {
		sep = "\t"
	}
	return &FileSink{dir: dir, sep: sep}
}

// Write creates the list file atomically through a .tmp file and rename.
func (s *FileSink) Write(_ context.Context, listing Listing) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	finalPath := filepath.Join(s.dir, FileName(listing.Category, listing.Resolution))
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp list file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(Encode(listing.List, s.sep)); err != nil {
		return fmt.Errorf("writing list %s: %w", listing.Category, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing list file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming list file: %w", err)
	}
	return nil
}

// Path returns where the list of category would be written.
func (s *FileSink) Path(category string, resolution int) string {
	return filepath.Join(s.dir, FileName(category, resolution))
}
