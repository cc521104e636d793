// Package catalog persists qubit design records in a DuckDB database file.
package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb"
	"github.com/qubitmask/backend/internal/models"
	"github.com/qubitmask/backend/internal/qubit"
)

// Catalog stores design records in a DuckDB file so the library of masks
// survives service restarts.
type Catalog struct {
	db     *sql.DB
	dbPath string
}

// Options tunes the underlying DuckDB instance.
type Options struct {
	Threads     int
	MemoryLimit string
}

// DefaultOptions returns the default DuckDB tuning values.
func DefaultOptions() Options {
	return Options{Threads: 4, MemoryLimit: "512MB"}
}

// Open opens (or creates) a design catalog at the given path.
func Open(dbPath string, opts Options) (*Catalog, error) {
	fmt.Printf("[Catalog] Opening database at: %s\n", dbPath)

	if opts.Threads <= 0 {
		opts.Threads = DefaultOptions().Threads
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = DefaultOptions().MemoryLimit
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	// The catalog file may already hold designs from a previous run, so the
	// table is created conditionally and the file is never removed on error.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS designs (
			id                VARCHAR PRIMARY KEY,
			name              VARCHAR NOT NULL,
			junction_width    DOUBLE NOT NULL,
			junction_height   DOUBLE NOT NULL,
			junction_offset   DOUBLE NOT NULL,
			wire_width        DOUBLE NOT NULL,
			wire_height       DOUBLE NOT NULL,
			connection_radius DOUBLE NOT NULL,
			junction_layer    INTEGER NOT NULL,
			connection_layer  INTEGER NOT NULL,
			wire_layer        INTEGER NOT NULL,
			created_at        TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create designs table: %w", err)
	}

	return &Catalog{db: db, dbPath: dbPath}, nil
}

// Put inserts or replaces a design record.
func (c *Catalog) Put(ctx context.Context, rec *models.DesignRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO designs (
			id, name,
			junction_width, junction_height, junction_offset,
			wire_width, wire_height, connection_radius,
			junction_layer, connection_layer, wire_layer,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name,
		rec.Params.JunctionWidth, rec.Params.JunctionHeight, rec.Params.JunctionOffset,
		rec.Params.WireWidth, rec.Params.WireHeight, rec.Params.ConnectionRadius,
		rec.Params.JunctionLayer, rec.Params.ConnectionLayer, rec.Params.WireLayer,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store design %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a design record by ID.
func (c *Catalog) Get(ctx context.Context, id string) (*models.DesignRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, name,
			junction_width, junction_height, junction_offset,
			wire_width, wire_height, connection_radius,
			junction_layer, connection_layer, wire_layer,
			created_at
		FROM designs WHERE id = ?`, id)

	rec, err := scanDesign(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("design not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load design %s: %w", id, err)
	}
	return rec, nil
}

// List returns the most recently created designs, up to limit.
func (c *Catalog) List(ctx context.Context, limit int) ([]*models.DesignRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name,
			junction_width, junction_height, junction_offset,
			wire_width, wire_height, connection_radius,
			junction_layer, connection_layer, wire_layer,
			created_at
		FROM designs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list designs: %w", err)
	}
	defer rows.Close()

	var list []*models.DesignRecord
	for rows.Next() {
		rec, err := scanDesign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan design row: %w", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list designs: %w", err)
	}
	return list, nil
}

// Delete removes a design record. Deleting an unknown ID is an error.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM designs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete design %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete design %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("design not found: %s", id)
	}
	return nil
}

// Count returns the number of stored designs.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM designs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count designs: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Path returns the location of the catalog database file.
func (c *Catalog) Path() string {
	return c.dbPath
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDesign(row rowScanner) (*models.DesignRecord, error) {
	var rec models.DesignRecord
	var p qubit.Params
	err := row.Scan(
		&rec.ID, &rec.Name,
		&p.JunctionWidth, &p.JunctionHeight, &p.JunctionOffset,
		&p.WireWidth, &p.WireHeight, &p.ConnectionRadius,
		&p.JunctionLayer, &p.ConnectionLayer, &p.WireLayer,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Params = p
	return &rec, nil
}
