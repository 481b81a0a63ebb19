package services

import (
	"context"
	"database/sql"
	"fmt"

	"ecohub-core/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgresClient(ctx context.Context, conf config.PostgresConfig) (*PostgresClient, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		conf.User, conf.Password, conf.Host, conf.Port, conf.DBName, conf.SSLMode)
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return &PostgresClient{DB: db}, nil
}
