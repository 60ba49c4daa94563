package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var _ StorageBackend = (*boltBookStorage)(nil)

type boltBookStorage struct {
	logger     *zap.Logger
	client     *bolt.DB
	bucket     []byte
	idsHandler UIDHandler
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *BoltDBConfig) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder: %w", err)
	}
	db, err := bolt.Open(config.FilePath, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %w", config.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %w", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, bucketName string, client *bolt.DB, ids UIDHandler) StorageBackend {
	return &boltBookStorage{
		logger:     logger,
		client:     client,
		bucket:     []byte(bucketName),
		idsHandler: ids,
	}
}

// Ping checks the bucket is readable.
func (bs *boltBookStorage) Ping(_ context.Context) error {
	return bs.client.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bs.bucket) == nil {
			return fmt.Errorf("bolt: bucket %s does not exist", bs.bucket)
		}
		return nil
	})
}

// Save inserts or replaces a book record. A new id is generated when missing.
func (bs *boltBookStorage) Save(_ context.Context, book Book) (Book, error) {
	if book.ID == "" {
		book.ID = bs.idsHandler.Generate(BookIDPrefix)
	}
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return Book{}, err
	}
	err = bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bs.bucket).Put([]byte(book.ID), bookBytes)
	})
	if err != nil {
		return Book{}, fmt.Errorf("bolt: save book %s: %w", book.ID, err)
	}
	return book, nil
}

// Update replaces an existing book record inside a single transaction.
func (bs *boltBookStorage) Update(_ context.Context, book Book) (Book, error) {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return Book{}, err
	}
	err = bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bs.bucket)
		if b.Get([]byte(book.ID)) == nil {
			return ErrBookNotFound
		}
		return b.Put([]byte(book.ID), bookBytes)
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// GetOne retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	var book Book
	err := bs.client.View(func(tx *bolt.Tx) error {
		result := tx.Bucket(bs.bucket).Get([]byte(id))
		if result == nil {
			return ErrBookNotFound
		}
		return json.Unmarshal(result, &book)
	})
	return book, err
}

// Delete removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) Delete(_ context.Context, id string) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bs.bucket)
		if b.Get([]byte(id)) == nil {
			return ErrBookNotFound
		}
		return b.Delete([]byte(id))
	})
}

// GetAll retrieves a list of all books stored in the bolt database.
func (bs *boltBookStorage) GetAll(_ context.Context) ([]Book, error) {
	books := []Book{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bs.bucket).ForEach(func(_, v []byte) error {
			var book Book
			if err := json.Unmarshal(v, &book); err != nil {
				return err
			}
			books = append(books, book)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: list books: %w", err)
	}
	return books, nil
}
