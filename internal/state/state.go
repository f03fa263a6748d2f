// Package state persists the player across restarts: queue contents,
// current position in it, playback modes and volume live in a small
// SQLite database under the XDG data directory.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "chorus"
	dbFileName   = "chorus.db"
	saveDebounce = 500 * time.Millisecond
)

// Manager owns the state database. Saves are debounced: rapid queue
// edits collapse into one write, and Close flushes whatever is
// pending.
type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *PlayerState
}

// Open opens the state database at its XDG location, creating it and
// the schema on first use.
func Open() (*Manager, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens the state database at an explicit path.
func OpenPath(dbPath string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Manager{db: db}, nil
}

// Close flushes any pending save and closes the database.
func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending != nil {
		_ = savePlayer(m.db, *pending)
	}
	return m.db.Close()
}

// Get loads the saved player state. A fresh database yields an empty
// state with CurrentIndex -1 and full volume.
func (m *Manager) Get() (*PlayerState, error) {
	return getPlayer(m.db)
}

// Save schedules a debounced write of the player state.
func (m *Manager) Save(state PlayerState) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &state

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		m.saveMu.Unlock()

		if pending != nil {
			_ = savePlayer(m.db, *pending)
		}
	})
}

// withTx executes fn within a transaction, rolling back on error.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
