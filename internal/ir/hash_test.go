package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeHashDeterminism(t *testing.T) {
	h1, err := TreeHash(sampleTree())
	require.NoError(t, err)
	h2, err := TreeHash(sampleTree())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.Regexp(t, `^[0-9a-f]{64}$`, h1)
}

func TestTreeHashChangesWithContent(t *testing.T) {
	base := MustTreeHash(sampleTree())

	renamed := sampleTree()
	renamed.Module = "alu2"
	assert.NotEqual(t, base, MustTreeHash(renamed))

	resourced := sampleTree()
	resourced.Root[1].(*AssignNode).Source = "nz"
	assert.NotEqual(t, base, MustTreeHash(resourced))

	reoccurred := sampleTree()
	reoccurred.Root[1].(*AssignNode).Site.Occurrence = 3
	assert.NotEqual(t, base, MustTreeHash(reoccurred))
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t, hashWithDomain(DomainTree, data), hashWithDomain(DomainSite, data))

	// The separator keeps "ab"+"c" apart from "a"+"bc"
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}

func TestSiteKey(t *testing.T) {
	k1 := SiteKey([]string{"alu.go:12", "top.go:40"})
	k2 := SiteKey([]string{"alu.go:12", "top.go:41"})

	assert.True(t, strings.HasPrefix(k1, "alu.go:12@"))
	assert.Len(t, strings.TrimPrefix(k1, "alu.go:12@"), 12)
	assert.NotEqual(t, k1, k2, "same line reached from different callers")
	assert.Equal(t, k1, SiteKey([]string{"alu.go:12", "top.go:40"}))
	assert.Empty(t, SiteKey(nil))
}

func TestModuleHash(t *testing.T) {
	leaf := &Module{Name: "cell", TreeHash: "aa"}
	top := &Module{Name: "top", TreeHash: "bb", Instances: []Instance{{Name: "u0", Module: leaf}}}

	h1, err := ModuleHash(top)
	require.NoError(t, err)
	h2, err := ModuleHash(&Module{Name: "top", TreeHash: "bb", Instances: []Instance{{Name: "u0", Module: leaf}}})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// The ID is not part of the identity
	top.ID = "0192a000-0000-7000-8000-000000000001"
	h3, err := ModuleHash(top)
	require.NoError(t, err)
	assert.Equal(t, h1, h3)

	changed := &Module{Name: "top", TreeHash: "bb", Instances: []Instance{{Name: "u0", Module: &Module{Name: "cell", TreeHash: "cc"}}}}
	h4, err := ModuleHash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h4, "a different sub-module changes the parent identity")

	renamed := &Module{Name: "top", TreeHash: "bb", Instances: []Instance{{Name: "u1", Module: leaf}}}
	h5, err := ModuleHash(renamed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h5)
}
