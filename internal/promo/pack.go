// Package promo holds the offline promo-code prefilter. The backend ships a
// compressed bloom filter of its live promo codes; the client uses it to
// reject obvious typos before any network round trip. False positives pass
// through to the backend, which stays authoritative.
package promo

import (
	"io"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
)

const (
	// packCapacity matches the backend's live code count with headroom.
	packCapacity = 1_000_000
	packFPR      = 0.001
)

// Pack is a read-mostly bloom filter over the known promo codes. Codes are
// matched case-insensitively.
type Pack struct {
	filter *bloom.BloomFilter
}

// NewPack creates an empty pack sized for the backend's code set.
func NewPack() *Pack {
	return &Pack{filter: bloom.NewWithEstimates(packCapacity, packFPR)}
}

// Add inserts a code into the pack.
func (p *Pack) Add(code string) {
	p.filter.AddString(normalize(code))
}

// MightContain reports whether the code may be a live promo code. A false
// result is definitive; a true result still needs backend validation.
func (p *Pack) MightContain(code string) bool {
	return p.filter.TestString(normalize(code))
}

// Merge folds another pack of the same dimensions into this one.
func (p *Pack) Merge(other *Pack) error {
	return errors.Wrap(p.filter.Merge(other.filter), "merge filters")
}

// Save writes the pack to path as a gzip-compressed filter snapshot.
func (p *Pack) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	if _, err := p.filter.WriteTo(gz); err != nil {
		return errors.Wrap(err, "write filter")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "flush gzip")
	}
	return f.Close()
}

// Load reads a pack written by Save.
func Load(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var filter bloom.BloomFilter
	if _, err := filter.ReadFrom(gz); err != nil {
		return nil, errors.Wrap(err, "read filter")
	}
	return &Pack{filter: &filter}, nil
}

// FromReader builds a pack from newline-separated codes, e.g. a code dump
// streamed from the backend.
func FromReader(r io.Reader) (*Pack, error) {
	p := NewPack()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read codes")
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if code := strings.TrimSpace(line); code != "" {
			p.Add(code)
		}
	}
	return p, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
