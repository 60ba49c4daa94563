package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// boltDBConsumer replays books changes into a mirror storage.
type boltDBConsumer struct {
	logger  *zap.Logger
	queue   Queuer
	repo    BookStorage
	backoff time.Duration
}

func NewBoltDBConsumer(logger *zap.Logger, q Queuer, repo BookStorage) Consumer {
	return &boltDBConsumer{logger: logger, queue: q, repo: repo, backoff: time.Second}
}

// Consume pops changes until the context is done.
func (bc *boltDBConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, book, err := bc.queue.Pop(ctx, qids...)
		if ctx.Err() != nil {
			bc.logger.Info("consumer: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if errors.Is(err, ErrQueueEmpty) {
			continue
		}

		if err != nil {
			bc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(bc.backoff):
			}
			continue
		}

		bc.apply(ctx, qid, book)
	}
}

func (bc *boltDBConsumer) apply(ctx context.Context, qid string, book Book) {
	switch qid {
	case CreateQueue, UpdateQueue:
		if _, err := bc.repo.Save(ctx, book); err != nil {
			bc.logger.Error("consumer: failed to save", zap.String("qid", qid), zap.String("book.id", book.ID), zap.Error(err))
		}
	case DeleteQueue:
		err := bc.repo.Delete(ctx, book.ID)
		if errors.Is(err, ErrBookNotFound) {
			bc.logger.Warn("consumer: book to delete not in mirror", zap.String("book.id", book.ID))
		} else if err != nil {
			bc.logger.Error("consumer: failed to delete", zap.String("book.id", book.ID), zap.Error(err))
		}
	default:
		bc.logger.Warn("consumer: received book on unknown queue id", zap.String("qid", qid), zap.String("book.id", book.ID))
	}
}
