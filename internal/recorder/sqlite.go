package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists check history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so ad-hoc readers don't block the hourly writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_checks (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			asin         TEXT NOT NULL,
			price        INTEGER,
			availability TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_asin_ts ON price_checks(asin, timestamp)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			asin      TEXT NOT NULL,
			old_price INTEGER,
			new_price INTEGER,
			posted    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_ts ON notifications(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCheck(evt *CheckEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO price_checks (timestamp, asin, price, availability)
		VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.ASIN, evt.Price, evt.Availability,
	)
	return err
}

func (r *SQLiteRecorder) RecordNotification(evt *NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	posted := 0
	if evt.Posted {
		posted = 1
	}
	_, err := r.db.Exec(`INSERT INTO notifications (timestamp, asin, old_price, new_price, posted)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.ASIN, evt.OldPrice, evt.NewPrice, posted,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
