package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// Open connects to a libsql database. Remote turso URLs get the auth token
// appended; anything else is treated as a local file path.
func Open(databaseURL, authToken string) (*sql.DB, error) {
	connStr := databaseURL
	if strings.HasPrefix(databaseURL, "libsql://") && authToken != "" {
		connStr = databaseURL + "?authToken=" + authToken
	} else if !strings.HasPrefix(databaseURL, "file:") {
		connStr = "file:" + databaseURL
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Turso's Hrana protocol aggressively closes idle streams; keeping idle
	// connections around just produces "stream not found" on first use.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// IsStreamError checks for Turso's "stream not found" stale-connection error.
func IsStreamError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "stream not found")
}

// WithRetry retries fn for stream errors, up to maxRetries times, with a
// short pause to let the connection pool refresh.
func WithRetry[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !IsStreamError(err) || attempt == maxRetries {
			return result, err
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return result, err
}
