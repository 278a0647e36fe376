// Package sqlite opens the local SQLite database used when no PostgreSQL
// server is configured.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/config"
	_ "github.com/mattn/go-sqlite3"
)

type Client struct {
	DB   *sql.DB
	path string
}

// New opens the database at cfg.Path. ":memory:" gives a private in-memory
// database, which tests use.
func New(cfg config.SQLiteConfig) (*Client, error) {
	db, err := sql.Open("sqlite3", cfg.Path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", cfg.Path, err)
	}
	// one writer; in-memory databases are per connection
	db.SetMaxOpenConns(1)
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database %s: %w", cfg.Path, err)
	}
	return &Client{DB: db, path: cfg.Path}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}
