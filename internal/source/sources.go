package source

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"   // postgres driver
	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/tablelink-labs/tablelink/internal/project"
)

// Sources resolves named data-source identifiers to live connections.
// Connections are opened lazily and cached per name for the lifetime of the
// registry.
type Sources struct {
	mu      sync.Mutex
	configs map[string]project.SourceConfig
	dbs     map[string]*sql.DB
}

// NewSources creates a registry over the project's named source
// descriptors.
func NewSources(configs map[string]project.SourceConfig) *Sources {
	return &Sources{
		configs: configs,
		dbs:     make(map[string]*sql.DB),
	}
}

// AddDB injects an already-open connection under a name, replacing any
// configured descriptor. Used by tests and embedding callers.
func (s *Sources) AddDB(name string, db *sql.DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbs[name] = db
}

// DB returns the connection for a named source, opening it on first use.
func (s *Sources) DB(ctx context.Context, name string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[name]; ok {
		return db, nil
	}
	cfg, ok := s.configs[name]
	if !ok {
		return nil, fmt.Errorf("data source %q is not declared", name)
	}

	var db *sql.DB
	var err error
	switch cfg.Driver {
	case "duckdb", "":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		db, err = sql.Open("duckdb", path)
	case "postgres":
		db, err = sql.Open("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("data source %q: unknown driver %q", name, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("data source %q: %w", name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("data source %q: ping: %w", name, err)
	}
	s.dbs[name] = db
	return db, nil
}

// Close closes all opened connections.
func (s *Sources) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	s.dbs = make(map[string]*sql.DB)
	if len(errs) > 0 {
		return fmt.Errorf("closing data sources: %v", errs)
	}
	return nil
}
