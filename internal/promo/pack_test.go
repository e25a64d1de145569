package promo

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackMembership(t *testing.T) {
	p := NewPack()
	p.Add("HAPPYHRS")
	p.Add("fiftyoff")

	assert.True(t, p.MightContain("HAPPYHRS"))
	assert.True(t, p.MightContain("happyhrs"), "matching is case-insensitive")
	assert.True(t, p.MightContain(" FIFTYOFF "))
	assert.False(t, p.MightContain("DEFINITELY-NOT-A-CODE"))
}

func TestPackSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promo.pack.gz")

	p := NewPack()
	p.Add("OVER9000")
	require.NoError(t, p.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.MightContain("OVER9000"))
	assert.False(t, loaded.MightContain("UNDER9000"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.gz"))
	require.Error(t, err)
}

func TestFromReader(t *testing.T) {
	p, err := FromReader(strings.NewReader("HAPPYHRS\n\n  birthday  \n"))
	require.NoError(t, err)
	assert.True(t, p.MightContain("HAPPYHRS"))
	assert.True(t, p.MightContain("BIRTHDAY"))
	assert.False(t, p.MightContain("GNULINUX"))
}
