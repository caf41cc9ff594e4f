package store

import (
	"context"
	"fmt"

	"github.com/roach88/hdlreplay/internal/ir"
)

// ModuleRecord is the summary of a stored module, without its tree.
type ModuleRecord struct {
	Seq           int64  `json:"seq"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	ModuleHash    string `json:"module_hash"`
	TreeHash      string `json:"tree_hash"`
	Invocations   int    `json:"invocations"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}

// ReadModule retrieves a stored module and all its instances by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadModule(ctx context.Context, id string) (*ir.Module, error) {
	m, err := s.readModule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", id, err)
	}
	return m, nil
}

// LatestModule retrieves the most recently stored module with the given name.
// Returns an error wrapping sql.ErrNoRows if none exists.
func (s *Store) LatestModule(ctx context.Context, name string) (*ir.Module, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM modules
		WHERE name = ?
		ORDER BY seq DESC
		LIMIT 1
	`, name).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("latest module %s: %w", name, err)
	}
	return s.ReadModule(ctx, id)
}

func (s *Store) readModule(ctx context.Context, id string) (*ir.Module, error) {
	var (
		m           ir.Module
		treeJSON    string
		driversJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, tree_hash, tree, drivers, invocations
		FROM modules
		WHERE id = ?
	`, id).Scan(&m.ID, &m.Name, &m.TreeHash, &treeJSON, &driversJSON, &m.Invocations)
	if err != nil {
		return nil, err
	}

	if m.Tree, err = unmarshalTree(treeJSON, m.TreeHash); err != nil {
		return nil, err
	}
	if m.Drivers, err = unmarshalDrivers(driversJSON); err != nil {
		return nil, err
	}

	type link struct{ name, child string }
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, child_id
		FROM instances
		WHERE parent_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	var links []link
	for rows.Next() {
		var l link
		if err := rows.Scan(&l.name, &l.child); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	rows.Close()

	// Children are read after the rows are closed; the pool holds one connection.
	for _, l := range links {
		child, err := s.readModule(ctx, l.child)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", l.name, err)
		}
		m.Instances = append(m.Instances, ir.Instance{Name: l.name, Module: child})
	}
	return &m, nil
}

// ListModules returns summaries of stored modules, optionally filtered by
// name (empty name lists all). Results are ordered by seq ASC, id ASC
// COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing is stored.
func (s *Store) ListModules(ctx context.Context, name string) ([]ModuleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, name, module_hash, tree_hash, invocations, engine_version, ir_version
		FROM modules
		WHERE ? = '' OR name = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, name, name)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	records := []ModuleRecord{}
	for rows.Next() {
		var r ModuleRecord
		if err := rows.Scan(&r.Seq, &r.ID, &r.Name, &r.ModuleHash, &r.TreeHash,
			&r.Invocations, &r.EngineVersion, &r.IRVersion); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return records, nil
}

// Stats returns the number of stored modules and instance links.
func (s *Store) Stats(ctx context.Context) (modules, instances int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM modules`).Scan(&modules); err != nil {
		return 0, 0, fmt.Errorf("count modules: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instances`).Scan(&instances); err != nil {
		return 0, 0, fmt.Errorf("count instances: %w", err)
	}
	return modules, instances, nil
}
