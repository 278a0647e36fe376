// Package normalize folds tokens before they are bucketed: Unicode NFKC
// composition, lower-casing and optional Snowball stemming. It never adds or
// removes slots from a sample, so positions are preserved.
package normalize

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
)

type Options struct {
	NFKC      bool
	Lowercase bool
	// StemLanguage is a Snowball language ("english", "spanish", ...); empty
	// disables stemming.
	StemLanguage string
}

// Normalizer applies Options to tokens. The zero value is the identity.
type Normalizer struct {
	opts Options
}

// New validates opts and returns a Normalizer. A nil *Normalizer is also
// valid and leaves tokens untouched.
func New(opts Options) (*Normalizer, error) {
	if opts.StemLanguage != "" {
		if _, err := snowball.Stem("probe", opts.StemLanguage, true); err != nil {
			return nil, apperrors.InvalidParameterf("stem language %q: %v", opts.StemLanguage, err)
		}
	}
	return &Normalizer{opts: opts}, nil
}

// Enabled reports whether any folding is configured.
func (n *Normalizer) Enabled() bool {
	return n != nil && (n.opts.NFKC || n.opts.Lowercase || n.opts.StemLanguage != "")
}

// Token folds a single token. Empty tokens stay empty.
func (n *Normalizer) Token(tok string) string {
	if !n.Enabled() || tok == "" {
		return tok
	}
	if n.opts.NFKC {
		tok = norm.NFKC.String(tok)
	}
	if n.opts.Lowercase {
		tok = strings.ToLower(tok)
	}
	if n.opts.StemLanguage != "" {
		stemmed, err := snowball.Stem(tok, n.opts.StemLanguage, true)
		if err == nil {
			tok = stemmed
		}
	}
	return tok
}

// Sample folds every token of a sample in place and returns it.
func (n *Normalizer) Sample(sample []string) []string {
	if !n.Enabled() {
		return sample
	}
	for i, tok := range sample {
		sample[i] = n.Token(tok)
	}
	return sample
}

func (n *Normalizer) String() string {
	if !n.Enabled() {
		return "none"
	}
	return fmt.Sprintf("nfkc=%t lowercase=%t stem=%q", n.opts.NFKC, n.opts.Lowercase, n.opts.StemLanguage)
}
