package publish

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
)

func testBuild(id string) domain.Build {
	return domain.Build{
		ID:         id,
		Page:       "home",
		Markup:     `<div class="element">hi</div>`,
		License:    "",
		DeployedAt: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

func TestSQLiteSink_RecordsBuilds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	sink, err := NewSink(config.SinkConfig{Name: "archive", Driver: "sqlite", Database: path, Table: "builds"})
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	ctx := context.Background()
	for _, id := range []string{"b1", "b2"} {
		if err := sink.Publish(ctx, testBuild(id)); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}
	if err := sink.Publish(ctx, testBuild("b1")); err == nil {
		t.Error("duplicate build id should fail")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	var markup string
	if err := db.QueryRow(`SELECT COUNT(*), MAX(markup) FROM builds`).Scan(&n, &markup); err != nil {
		t.Fatal(err)
	}
	if n != 2 || markup != testBuild("x").Markup {
		t.Errorf("expected 2 builds, got %d (%q)", n, markup)
	}
}

func TestNewSink_Validation(t *testing.T) {
	if _, err := NewSink(config.SinkConfig{Driver: "redis"}); err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("expected unsupported driver, got %v", err)
	}
	if _, err := NewSink(config.SinkConfig{Driver: "sqlite", Table: "builds; DROP TABLE x"}); err == nil {
		t.Error("expected invalid table name error")
	}
}

func TestDSNBuilders(t *testing.T) {
	my := buildMySQLDSN(config.SinkConfig{Host: "db", Username: "u", Password: "p", Database: "site", SSLMode: "require"})
	if my != "u:p@tcp(db:3306)/site?parseTime=true&charset=utf8mb4&tls=true" {
		t.Errorf("mysql dsn %q", my)
	}
	pg := buildPostgresDSN(config.SinkConfig{Host: "db", Port: 6543, Username: "u", Password: "p", Database: "site"})
	if pg != "host=db port=6543 user=u password=p dbname=site sslmode=disable" {
		t.Errorf("postgres dsn %q", pg)
	}
	if got := buildMongoURI(config.SinkConfig{Host: "mongodb+srv://cluster.test/x"}); got != "mongodb+srv://cluster.test/x" {
		t.Errorf("mongo uri passthrough %q", got)
	}
	if got := buildMongoURI(config.SinkConfig{Host: "localhost", Username: "u", Password: "p"}); got != "mongodb://u:p@localhost:27017" {
		t.Errorf("mongo uri %q", got)
	}
	if got := dollarPlaceholders(3); strings.Join(got, ",") != "$1,$2,$3" {
		t.Errorf("placeholders %v", got)
	}
}

type fakeSink struct {
	name string
	err  error
	got  []domain.Build
}

func (f *fakeSink) Name() string { return f.name }
func (f *fakeSink) Publish(_ context.Context, b domain.Build) error {
	f.got = append(f.got, b)
	return f.err
}
func (f *fakeSink) Close() error { return nil }

func TestPublisher_FailureDoesNotStopOthers(t *testing.T) {
	ok := &fakeSink{name: "ok"}
	bad := &fakeSink{name: "bad", err: errors.New("unreachable")}
	p := NewPublisherWithSinks(nil, bad, ok)

	err := p.Publish(context.Background(), testBuild("b1"))
	if err == nil || !strings.Contains(err.Error(), "sink bad") {
		t.Fatalf("expected error naming the bad sink, got %v", err)
	}
	if len(ok.got) != 1 || ok.got[0].ID != "b1" {
		t.Error("healthy sink should still receive the build")
	}
	if names := p.Sinks(); len(names) != 2 {
		t.Errorf("sinks %v", names)
	}
}

func TestNewPublisher_SkipsBrokenSinks(t *testing.T) {
	p := NewPublisher([]config.SinkConfig{
		{Name: "nope", Driver: "redis"},
		{Name: "archive", Driver: "sqlite", Database: filepath.Join(t.TempDir(), "a.db")},
	}, nil)
	defer p.Close()
	if names := p.Sinks(); len(names) != 1 || names[0] != "archive" {
		t.Errorf("expected only archive, got %v", names)
	}
}
