package main

import (
	"context"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	GetAll(ctx context.Context) ([]Book, error)
	GetOne(ctx context.Context, id string) (Book, error)
	Create(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, id string, book Book) (Book, error)
	Delete(ctx context.Context, id string) (Book, error)
}

// BookService runs the books use cases over a storage and
// announces every successful change through the publisher.
type BookService struct {
	logger    *zap.Logger
	config    *Config
	storage   BookStorage
	publisher Publisher
}

func NewBookService(logger *zap.Logger, config *Config, storage BookStorage, publisher Publisher) BookServiceProvider {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &BookService{
		logger:    logger,
		config:    config,
		storage:   storage,
		publisher: publisher,
	}
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	return bs.storage.GetAll(ctx)
}

func (bs *BookService) GetOne(ctx context.Context, id string) (Book, error) {
	return bs.storage.GetOne(ctx, id)
}

// Create stores the book under a fresh id whatever the caller set.
func (bs *BookService) Create(ctx context.Context, book Book) (Book, error) {
	book.ID = ""
	created, err := bs.storage.Save(ctx, book)
	if err != nil {
		return Book{}, err
	}
	bs.publish(ctx, CreateQueue, created)
	return created, nil
}

// Update overwrites the editable fields of the stored book. A book
// deleted meanwhile is reported as not found, never recreated.
func (bs *BookService) Update(ctx context.Context, id string, book Book) (Book, error) {
	changes := Book{
		ID:          id,
		Name:        book.Name,
		Description: book.Description,
		Price:       book.Price,
		Stock:       book.Stock,
	}

	updated, err := bs.storage.Update(ctx, changes)
	if err != nil {
		return Book{}, err
	}
	bs.publish(ctx, UpdateQueue, updated)
	return updated, nil
}

// Delete removes the book and returns its last known state.
func (bs *BookService) Delete(ctx context.Context, id string) (Book, error) {
	existing, err := bs.storage.GetOne(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if err = bs.storage.Delete(ctx, id); err != nil {
		return Book{}, err
	}
	bs.publish(ctx, DeleteQueue, existing)
	return existing, nil
}

func (bs *BookService) publish(ctx context.Context, qid string, book Book) {
	if err := bs.publisher.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue",
			zap.String("qid", qid),
			zap.String("book.id", book.ID),
			zap.Error(err),
		)
	}
}
