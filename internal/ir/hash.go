package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainTree   = "hdlreplay/tree/v1"
	DomainSite   = "hdlreplay/site/v1"
	DomainModule = "hdlreplay/module/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TreeHash computes the content-addressed identity of a tree.
// Structurally equal trees always hash equal.
func TreeHash(t *Tree) (string, error) {
	canonical, err := MarshalTree(t)
	if err != nil {
		return "", fmt.Errorf("TreeHash: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}

// MustTreeHash is like TreeHash but panics on error.
// Use only in tests or when the tree is known to be valid.
func MustTreeHash(t *Tree) string {
	h, err := TreeHash(t)
	if err != nil {
		panic(err)
	}
	return h
}

// ModuleHash computes the identity of a whole elaboration: the module's tree
// hash plus the name and ModuleHash of every instance, in elaboration order.
// Two elaborations of the same body against the same sub-modules hash equal.
func ModuleHash(m *Module) (string, error) {
	insts := make(Array, len(m.Instances))
	for i, inst := range m.Instances {
		h, err := ModuleHash(inst.Module)
		if err != nil {
			return "", fmt.Errorf("ModuleHash: instance %s: %w", inst.Name, err)
		}
		insts[i] = Object{"name": String(inst.Name), "hash": String(h)}
	}
	canonical, err := MarshalCanonical(Object{
		"name":      String(m.Name),
		"tree_hash": String(m.TreeHash),
		"instances": insts,
	})
	if err != nil {
		return "", fmt.Errorf("ModuleHash: %w", err)
	}
	return hashWithDomain(DomainModule, canonical), nil
}

// SiteKey builds a call-site key from a call stack rendered innermost first.
// The key keeps the innermost frame readable and digests the rest, so two
// calls on the same line reached through different callers get distinct keys.
func SiteKey(frames []string) string {
	if len(frames) == 0 {
		return ""
	}
	digest := hashWithDomain(DomainSite, []byte(strings.Join(frames, "\n")))
	return frames[0] + "@" + digest[:12]
}
