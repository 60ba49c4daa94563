package main

import (
	"context"

	"github.com/shopspring/decimal"
)

func init() {
	// prices travel as plain json numbers (19.99) rather than strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Book represents a book entity. The ID is assigned by the
// storage layer at creation and never changes afterwards.
type Book struct {
	ID          string           `json:"id"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

// NewBook builds a book with all its editable fields set.
func NewBook(name, description string, price decimal.Decimal, stock int) Book {
	return Book{
		Name:        &name,
		Description: &description,
		Price:       &price,
		Stock:       &stock,
	}
}

// BookStorage defines the data-access operations used on book entity.
// Save inserts the book with a freshly generated ID when its ID is empty,
// otherwise it replaces or creates the stored record with the same ID.
// Update overwrites an existing record only and returns ErrBookNotFound
// when none exists, the check and the write being a single step.
type BookStorage interface {
	GetOne(ctx context.Context, id string) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	Save(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, book Book) (Book, error)
	Delete(ctx context.Context, id string) error
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageBackend is a book storage which can be health-checked.
type StorageBackend interface {
	BookStorage
	Pinger
}
