package stats

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"

	"github.com/sarchlab/sinuca-go/link"
)

// Sink persists per-run statistics rows to a SQL database, selected by a
// DSN's scheme: "sqlite://<path>" or "mysql://<driver-dsn>".
type Sink struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS run_statistics (
	run_id TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	name TEXT NOT NULL,
	value TEXT NOT NULL
)`

// OpenSink opens dsn and ensures its statistics table exists.
func OpenSink(dsn string) (*Sink, error) {
	driver, source, err := splitDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("stats: opening %s sink: %w", driver, err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("stats: migrating sink: %w", err)
	}

	return &Sink{db: db}, nil
}

// splitDSN picks the database/sql driver name from dsn's scheme. The
// scheme is stripped rather than parsed as a full URL: a sqlite DSN is
// just a filesystem path (which may itself contain "://"-unfriendly
// characters), and a mysql DSN already has its own "user:pass@tcp(host)/db"
// grammar that a generic URL parser would mangle.
func splitDSN(dsn string) (driver, source string, err error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "mysql://"):
		return "mysql", strings.TrimPrefix(dsn, "mysql://"), nil
	default:
		return "", "", fmt.Errorf("stats: unrecognized sink DSN %q (want sqlite:// or mysql://)", dsn)
	}
}

// Persist writes one row per stat under a freshly generated run id, so
// repeated runs against the same sink stay distinguishable, and returns
// that id.
func (s *Sink) Persist(stats []link.Stat) (runID string, err error) {
	runID = xid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("stats: beginning transaction: %w", err)
	}

	for _, st := range stats {
		if _, err := tx.Exec(
			"INSERT INTO run_statistics (run_id, recorded_at, name, value) VALUES (?, ?, ?, ?)",
			runID, now, st.Name, st.Value,
		); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("stats: inserting %s: %w", st.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("stats: committing: %w", err)
	}

	return runID, nil
}

// Close releases the sink's underlying database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}
