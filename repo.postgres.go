package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ StorageBackend = (*postgresBookStorage)(nil)

const bookColumns = "id::text, name, description, price, stock"

type postgresBookStorage struct {
	logger  *zap.Logger
	pool    *pgxpool.Pool
	timeout time.Duration
}

// GetPostgresPool provides a ready to use and already pinged connections pool.
func GetPostgresPool(ctx context.Context, config *Config) (*pgxpool.Pool, error) {
	pgConfig, err := pgxpool.ParseConfig(config.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid postgres settings: %w", err)
	}
	if config.Postgres.MaxConns > 0 {
		pgConfig.MaxConns = config.Postgres.MaxConns
	}
	if config.Postgres.MinConns > 0 {
		pgConfig.MinConns = config.Postgres.MinConns
	}
	if config.Postgres.ConnectTimeout > 0 {
		pgConfig.ConnConfig.ConnectTimeout = config.Postgres.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	// test connection.
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %w", err)
	}
	return pool, nil
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, pool *pgxpool.Pool, timeout time.Duration) StorageBackend {
	return &postgresBookStorage{
		logger:  logger,
		pool:    pool,
		timeout: timeout,
	}
}

func (ps *postgresBookStorage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ps.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ps.timeout)
}

// Ping checks the database is reachable.
func (ps *postgresBookStorage) Ping(ctx context.Context) error {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	return ps.pool.Ping(ctx)
}

// GetOne retrieves a book record based on its ID.
func (ps *postgresBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	row := ps.pool.QueryRow(ctx, "SELECT "+bookColumns+" FROM books WHERE id = $1::uuid", id)
	book, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("postgres: get book %s: %w", id, err)
	}
	return book, nil
}

// GetAll retrieves all books ordered by name then id.
func (ps *postgresBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	rows, err := ps.pool.Query(ctx, "SELECT "+bookColumns+" FROM books ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("postgres: list books: %w", err)
	}
	books, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Book, error) {
		return scanBook(row)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: list books: %w", err)
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// Save inserts the book and lets the database generate its id when empty.
// Otherwise the row with the same id is replaced or created.
func (ps *postgresBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	var row pgx.Row
	if book.ID == "" {
		row = ps.pool.QueryRow(ctx,
			`INSERT INTO books (name, description, price, stock)
			VALUES ($1, $2, $3, $4)
			RETURNING `+bookColumns,
			book.Name, book.Description, nullDecimal(book.Price), book.Stock,
		)
	} else {
		row = ps.pool.QueryRow(ctx,
			`INSERT INTO books (id, name, description, price, stock)
			VALUES ($1::uuid, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				price = EXCLUDED.price,
				stock = EXCLUDED.stock
			RETURNING `+bookColumns,
			book.ID, book.Name, book.Description, nullDecimal(book.Price), book.Stock,
		)
	}

	saved, err := scanBook(row)
	if err != nil {
		return Book{}, fmt.Errorf("postgres: save book: %w", err)
	}
	return saved, nil
}

// Update overwrites the editable fields of an existing row.
func (ps *postgresBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	row := ps.pool.QueryRow(ctx,
		`UPDATE books SET
			name = $2,
			description = $3,
			price = $4,
			stock = $5
		WHERE id = $1::uuid
		RETURNING `+bookColumns,
		book.ID, book.Name, book.Description, nullDecimal(book.Price), book.Stock,
	)
	updated, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("postgres: update book %s: %w", book.ID, err)
	}
	return updated, nil
}

// Delete removes a book record based on its ID.
func (ps *postgresBookStorage) Delete(ctx context.Context, id string) error {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	tag, err := ps.pool.Exec(ctx, "DELETE FROM books WHERE id = $1::uuid", id)
	if err != nil {
		return fmt.Errorf("postgres: delete book %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func scanBook(row pgx.Row) (Book, error) {
	var book Book
	var price decimal.NullDecimal
	if err := row.Scan(&book.ID, &book.Name, &book.Description, &price, &book.Stock); err != nil {
		return Book{}, err
	}
	if price.Valid {
		book.Price = &price.Decimal
	}
	return book, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
