package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq"
)

type PostgresDB struct {
	*sqlx.DB
}

// NewPostgres opens the allocation database through the nrpq driver so
// every query is traced. The pool is sized for many short row-locking
// transactions rather than long reads.
func NewPostgres(databaseURL string, maxConns, maxIdleConns int) (*PostgresDB, error) {
	db, err := sqlx.Connect("nrpostgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return &PostgresDB{DB: db}, nil
}

func (p *PostgresDB) Close() error {
	return p.DB.Close()
}

func (p *PostgresDB) Health(ctx context.Context) error {
	return p.PingContext(ctx)
}
