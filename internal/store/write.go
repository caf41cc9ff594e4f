package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/hdlreplay/internal/ir"
)

// WriteModule stores m and every instance below it in one transaction.
// Returns the stored ID and whether a new row was inserted.
//
// Writes are idempotent on ir.ModuleHash: if an identical elaboration is
// already stored, its existing ID is returned with inserted=false and m.ID
// is not used. The same applies to each instance, so a sub-module shared by
// several parents is stored once.
func (s *Store) WriteModule(ctx context.Context, m *ir.Module) (id string, inserted bool, err error) {
	if m == nil || m.Tree == nil {
		return "", false, fmt.Errorf("write module: module has no tree")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write module: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id, inserted, err = writeModule(ctx, tx, m)
	if err != nil {
		return "", false, fmt.Errorf("write module %s: %w", m.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write module: commit: %w", err)
	}
	return id, inserted, nil
}

func writeModule(ctx context.Context, tx *sql.Tx, m *ir.Module) (string, bool, error) {
	hash, err := ir.ModuleHash(m)
	if err != nil {
		return "", false, err
	}

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM modules WHERE module_hash = ?`, hash).Scan(&existing)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", false, fmt.Errorf("lookup module hash: %w", err)
	}

	childIDs := make([]string, len(m.Instances))
	for i, inst := range m.Instances {
		childIDs[i], _, err = writeModule(ctx, tx, inst.Module)
		if err != nil {
			return "", false, fmt.Errorf("instance %s: %w", inst.Name, err)
		}
	}

	treeJSON, err := marshalTree(m.Tree)
	if err != nil {
		return "", false, err
	}
	driversJSON, err := marshalDrivers(m.Drivers)
	if err != nil {
		return "", false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO modules
		(id, name, module_hash, tree_hash, tree, drivers, invocations, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID,
		m.Name,
		hash,
		m.TreeHash,
		treeJSON,
		driversJSON,
		m.Invocations,
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return "", false, fmt.Errorf("insert module: %w", err)
	}

	for i, inst := range m.Instances {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO instances (parent_id, position, name, child_id)
			VALUES (?, ?, ?, ?)
		`, m.ID, i, inst.Name, childIDs[i])
		if err != nil {
			return "", false, fmt.Errorf("insert instance %s: %w", inst.Name, err)
		}
	}
	return m.ID, true, nil
}
