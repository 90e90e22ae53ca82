package publish

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"pagebuilder/internal/config"
)

// buildSQLiteDSN opens the file in WAL mode with a busy timeout so the
// desktop app and a standalone server can share it.
func buildSQLiteDSN(cfg config.SinkConfig) string {
	return cfg.Database + "?_journal_mode=WAL&_busy_timeout=5000"
}

// buildMySQLDSN constructs a MySQL DSN from a sink configuration.
func buildMySQLDSN(cfg config.SinkConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// buildPostgresDSN constructs a Postgres connection string from a sink configuration.
func buildPostgresDSN(cfg config.SinkConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.Username, cfg.Password, cfg.Database, sslMode,
	)
}

// buildMongoURI accepts a full mongodb:// or mongodb+srv:// URI in Host,
// otherwise builds one from host and port.
func buildMongoURI(cfg config.SinkConfig) string {
	if hasMongoScheme(cfg.Host) {
		return cfg.Host
	}
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	if cfg.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Username, cfg.Password, cfg.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", cfg.Host, port)
}
