package publish

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
)

const defaultTable = "pagebuilder_builds"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Sink is an external store receiving every deployed build.
type Sink interface {
	Name() string
	Publish(ctx context.Context, b domain.Build) error
	Close() error
}

// NewSink opens a Sink for the configured driver. Connections are lazy:
// an unreachable server only surfaces on Publish.
func NewSink(cfg config.SinkConfig) (Sink, error) {
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("sink %s: invalid table name %q", cfg.Name, table)
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Driver
	}

	switch cfg.Driver {
	case "sqlite":
		return newSQLSink(name, "sqlite", buildSQLiteDSN(cfg), table, questionPlaceholders)
	case "mysql":
		return newSQLSink(name, "mysql", buildMySQLDSN(cfg), table, questionPlaceholders)
	case "postgres":
		return newSQLSink(name, "postgres", buildPostgresDSN(cfg), table, dollarPlaceholders)
	case "mongodb":
		return newMongoSink(name, cfg, table)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

// Publisher fans a build out to every sink.
type Publisher struct {
	sinks []Sink
	log   *zap.Logger
}

// NewPublisher opens every configured sink. Sinks that fail to open are
// logged and skipped.
func NewPublisher(cfgs []config.SinkConfig, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{log: log}
	for _, c := range cfgs {
		s, err := NewSink(c)
		if err != nil {
			log.Warn("publish sink disabled", zap.String("sink", c.Name), zap.Error(err))
			continue
		}
		p.sinks = append(p.sinks, s)
	}
	return p
}

// NewPublisherWithSinks wraps already opened sinks.
func NewPublisherWithSinks(log *zap.Logger, sinks ...Sink) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{sinks: sinks, log: log}
}

// Sinks returns the names of the active sinks.
func (p *Publisher) Sinks() []string {
	names := make([]string, 0, len(p.sinks))
	for _, s := range p.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Publish sends b to all sinks concurrently. A failing sink does not
// stop the others; failures come back joined.
func (p *Publisher) Publish(ctx context.Context, b domain.Build) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, s := range p.sinks {
		g.Go(func() error {
			if err := s.Publish(ctx, b); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
				mu.Unlock()
				return nil
			}
			p.log.Debug("build published", zap.String("sink", s.Name()), zap.String("build", b.ID))
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

// Close closes every sink.
func (p *Publisher) Close() error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
