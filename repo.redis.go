package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ StorageBackend = (*redisBookStorage)(nil)

const HBooks string = "books"

// updateBookScript sets the hash field only when it already exists.
var updateBookScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`)

type redisBookStorage struct {
	logger     *zap.Logger
	client     *redis.Client
	idsHandler UIDHandler
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client, ids UIDHandler) StorageBackend {
	return &redisBookStorage{
		logger:     logger,
		client:     client,
		idsHandler: ids,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("test connection failed: %w", err)
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("test connection failed: unexpected reply %q", pong)
	}
	return client, nil
}

// Ping checks the redis server is reachable.
func (rs *redisBookStorage) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// Save inserts or replaces a book record. A new id is generated when missing.
func (rs *redisBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	if book.ID == "" {
		book.ID = rs.idsHandler.Generate(BookIDPrefix)
	}
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return Book{}, err
	}
	if err = rs.client.HSet(ctx, HBooks, book.ID, bookBytes).Err(); err != nil {
		return Book{}, fmt.Errorf("redis: save book %s: %w", book.ID, err)
	}
	return book, nil
}

// Update replaces an existing book record atomically on the server side.
func (rs *redisBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return Book{}, err
	}
	n, err := updateBookScript.Run(ctx, rs.client, []string{HBooks}, book.ID, bookBytes).Int()
	if err != nil {
		return Book{}, fmt.Errorf("redis: update book %s: %w", book.ID, err)
	}
	if n == 0 {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

// GetOne retrieves a book record based on its ID.
func (rs *redisBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, id).Result()
	if errors.Is(err, redis.Nil) {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, fmt.Errorf("redis: get book %s: %w", id, err)
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// Delete removes a book record based on its ID.
func (rs *redisBookStorage) Delete(ctx context.Context, id string) error {
	n, err := rs.client.HDel(ctx, HBooks, id).Result()
	if err != nil {
		return fmt.Errorf("redis: delete book %s: %w", id, err)
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

// GetAll retrieves a list of all books stored in the redis database.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	values, err := rs.client.HVals(ctx, HBooks).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list books: %w", err)
	}
	books := make([]Book, 0, len(values))
	for _, bookJSONString := range values {
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}
