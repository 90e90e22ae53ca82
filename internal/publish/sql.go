package publish

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"pagebuilder/internal/domain"
)

type placeholderStyle func(n int) []string

func questionPlaceholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "?"
	}
	return out
}

func dollarPlaceholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("$%d", i+1)
	}
	return out
}

// sqlSink is the shared implementation for MySQL, Postgres and SQLite.
type sqlSink struct {
	name  string
	db    *sql.DB
	table string
	ph    placeholderStyle

	once    sync.Once
	initErr error
}

func newSQLSink(name, driverName, dsn, table string, ph placeholderStyle) (*sqlSink, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlSink{name: name, db: db, table: table, ph: ph}, nil
}

func (s *sqlSink) Name() string { return s.name }

func (s *sqlSink) ensureTable(ctx context.Context) error {
	s.once.Do(func() {
		_, s.initErr = s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
			id VARCHAR(64) PRIMARY KEY,
			page VARCHAR(255) NOT NULL,
			markup TEXT NOT NULL,
			license VARCHAR(255) NOT NULL,
			deployed_at TIMESTAMP NOT NULL
		)`)
	})
	return s.initErr
}

func (s *sqlSink) Publish(ctx context.Context, b domain.Build) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.ensureTable(ctx); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	query := `INSERT INTO ` + s.table + ` (id, page, markup, license, deployed_at) VALUES (` +
		strings.Join(s.ph(5), ", ") + `)`
	if _, err := s.db.ExecContext(ctx, query, b.ID, b.Page, b.Markup, b.License, b.DeployedAt.UTC()); err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

func (s *sqlSink) Close() error {
	return s.db.Close()
}
