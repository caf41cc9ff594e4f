package store

import (
	"fmt"

	"github.com/roach88/hdlreplay/internal/ir"
)

// marshalTree converts a tree to canonical JSON TEXT for storage.
func marshalTree(t *ir.Tree) (string, error) {
	data, err := ir.MarshalTree(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// marshalDrivers converts driver tables to canonical JSON TEXT for storage.
// A nil table is stored as "{}".
func marshalDrivers(drivers map[ir.Endpoint][]ir.Driver) (string, error) {
	data, err := ir.MarshalDrivers(drivers)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalTree parses stored tree TEXT and checks it against the stored
// tree hash.
func unmarshalTree(data, treeHash string) (*ir.Tree, error) {
	t, err := ir.UnmarshalTree([]byte(data))
	if err != nil {
		return nil, err
	}
	got, err := ir.TreeHash(t)
	if err != nil {
		return nil, err
	}
	if got != treeHash {
		return nil, fmt.Errorf("tree hash mismatch: stored %s, computed %s", treeHash, got)
	}
	return t, nil
}

func unmarshalDrivers(data string) (map[ir.Endpoint][]ir.Driver, error) {
	if data == "" || data == "{}" {
		return map[ir.Endpoint][]ir.Driver{}, nil
	}
	return ir.UnmarshalDrivers([]byte(data))
}
