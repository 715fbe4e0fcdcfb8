// Package store keeps a ranking snapshot in SQLite and serves it with the
// same filtering, ordering and paging as the ranking service, so the
// viewer can run offline.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/castrank/castrank/pkg/loader"
	"github.com/castrank/castrank/pkg/model"
	"github.com/castrank/castrank/pkg/remote"
)

// DBFile is the database name inside a data directory.
const DBFile = "castrank.db"

// Store is a SQLite-backed remote.Source.
type Store struct {
	db *sql.DB
}

var _ remote.Source = (*Store)(nil)

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; readers wait on the same connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// OpenDir opens the database inside dataDir and imports the snapshot
// files found there.
func OpenDir(ctx context.Context, dataDir string) (*Store, error) {
	s, err := Open(filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, err
	}
	if err := s.ImportDir(ctx, dataDir); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS people (
		pid INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		name_lower TEXT NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL DEFAULT 0,
		num_shows INTEGER NOT NULL DEFAULT 0,
		num_titles INTEGER NOT NULL DEFAULT 0,
		top_role TEXT NOT NULL DEFAULT '',
		top_role_lower TEXT NOT NULL DEFAULT '',
		top_role_count INTEGER NOT NULL DEFAULT 0,
		top_pct REAL NOT NULL DEFAULT 0,
		top_subcategory TEXT NOT NULL DEFAULT '',
		top_subcategory_lower TEXT NOT NULL DEFAULT '',
		top_subcategory_count INTEGER NOT NULL DEFAULT 0,
		top_category TEXT NOT NULL DEFAULT '',
		top_category_lower TEXT NOT NULL DEFAULT '',
		top_category_count INTEGER NOT NULL DEFAULT 0,
		first_credit_date TEXT NOT NULL DEFAULT '',
		last_credit_date TEXT NOT NULL DEFAULT '',
		credit_date_range TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_people_count ON people(count DESC, name_lower, pid);

	CREATE TABLE IF NOT EXISTS roles (
		name TEXT PRIMARY KEY,
		num_people INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		main_group TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS role_people (
		role TEXT NOT NULL,
		position INTEGER NOT NULL,
		pid INTEGER NOT NULL,
		name TEXT NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (role, position)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ImportDir replaces the store's contents with the snapshot in dir.
func (s *Store) ImportDir(ctx context.Context, dir string) error {
	snap, err := loader.LoadSnapshot(dir)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	return s.Import(ctx, snap.People, snap.Roles)
}

// Import replaces the store's contents in one transaction.
func (s *Store) Import(ctx context.Context, people []model.Person, roles model.RolesPayload) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"people", "roles", "role_people"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insertPerson, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO people (
			pid, name, name_lower, slug, count, num_shows, num_titles,
			top_role, top_role_lower, top_role_count, top_pct,
			top_subcategory, top_subcategory_lower, top_subcategory_count,
			top_category, top_category_lower, top_category_count,
			first_credit_date, last_credit_date, credit_date_range, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare people insert: %w", err)
	}
	defer insertPerson.Close()

	for _, p := range people {
		if _, err := insertPerson.ExecContext(ctx,
			p.PID, p.Name, strings.ToLower(p.Name), p.Slug, p.Count, p.NumShows, p.NumTitles,
			p.TopRole, strings.ToLower(p.TopRole), p.TopRoleCount, p.TopPct,
			p.TopSubcategory, strings.ToLower(p.TopSubcategory), p.TopSubcategoryCount,
			p.TopCategory, strings.ToLower(p.TopCategory), p.TopCategoryCount,
			p.FirstCreditDate, p.LastCreditDate, p.CreditDateRange, p.Active,
		); err != nil {
			return fmt.Errorf("insert person %d: %w", p.PID, err)
		}
	}

	insertRole, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO roles (name, num_people, category, main_group, position)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare role insert: %w", err)
	}
	defer insertRole.Close()

	insertRanked, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO role_people (role, position, pid, name, slug, count)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare role people insert: %w", err)
	}
	defer insertRanked.Close()

	for i, r := range roles.Roles {
		ranked := roles.ByRole[r.Name]
		numPeople := r.NumPeople
		if numPeople == 0 {
			numPeople = len(ranked)
		}
		if _, err := insertRole.ExecContext(ctx, r.Name, numPeople, r.Category, r.MainGroup, i); err != nil {
			return fmt.Errorf("insert role %q: %w", r.Name, err)
		}
		for j, p := range ranked {
			if _, err := insertRanked.ExecContext(ctx, r.Name, j, p.PID, p.Name, p.Slug, p.Count); err != nil {
				return fmt.Errorf("insert %q holder %d: %w", r.Name, p.PID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Count returns the number of people stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM people`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count people: %w", err)
	}
	return n, nil
}
