package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs. Each one carries books resulting from the mutation it names.
const (
	CreateQueue = "creation"
	UpdateQueue = "updating"
	DeleteQueue = "deletion"
)

// ErrQueueEmpty is returned by Pop when nothing arrived before the pop timeout.
var ErrQueueEmpty = errors.New("queue is empty")

var (
	_ Queuer    = (*redisQueue)(nil)
	_ Publisher = noopPublisher{}
)

// Publisher sends books changes to a named channel.
type Publisher interface {
	Push(ctx context.Context, qid string, book Book) error
}

// Queuer describes a queue which can also be consumed.
type Queuer interface {
	Publisher
	Pop(ctx context.Context, qids ...string) (string, Book, error)
}

// noopPublisher drops every change. Used when no events driver is configured.
type noopPublisher struct{}

func (noopPublisher) Push(context.Context, string, Book) error { return nil }

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisQueue provides a redis lists based queue. Pop blocks at most popTimeout.
func NewRedisQueue(client *redis.Client, popTimeout time.Duration) Queuer {
	return &redisQueue{client: client, timeout: popTimeout}
}

// Push enqueues a book onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, bookBytes).Err()
}

// Pop returns the first dequeued book from the list of queue ids.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	var book Book
	infos, err := q.client.BLPop(ctx, q.timeout, qids...).Result()
	if errors.Is(err, redis.Nil) {
		return "", book, ErrQueueEmpty
	}
	if err != nil {
		return "", book, err
	}
	if len(infos) != 2 {
		return "", book, fmt.Errorf("queue: unexpected pop reply of %d items", len(infos))
	}

	if err = json.Unmarshal([]byte(infos[1]), &book); err != nil {
		return infos[0], book, err
	}
	return infos[0], book, nil
}
