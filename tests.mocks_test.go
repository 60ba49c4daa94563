package main

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	GetOneFunc func(ctx context.Context, id string) (Book, error)
	GetAllFunc func(ctx context.Context) ([]Book, error)
	SaveFunc   func(ctx context.Context, book Book) (Book, error)
	UpdateFunc func(ctx context.Context, book Book) (Book, error)
	DeleteFunc func(ctx context.Context, id string) error
	PingFunc   func(ctx context.Context) error
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// Save mocks the behavior of inserting or replacing a book by the repository.
func (m *MockBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	return m.SaveFunc(ctx, book)
}

// Update mocks the behavior of replacing an existing book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	return m.UpdateFunc(ctx, book)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// Ping mocks the storage health check. A nil PingFunc means healthy.
func (m *MockBookStorage) Ping(ctx context.Context) error {
	if m.PingFunc == nil {
		return nil
	}
	return m.PingFunc(ctx)
}

// inMemoryBookStorage is a map based storage used to run the service
// end-to-end in tests without any external database.
type inMemoryBookStorage struct {
	mu    sync.Mutex
	books map[string]Book
	ids   UIDHandler
}

func newInMemoryBookStorage(ids UIDHandler) *inMemoryBookStorage {
	return &inMemoryBookStorage{books: make(map[string]Book), ids: ids}
}

func (s *inMemoryBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

func (s *inMemoryBookStorage) GetAll(_ context.Context) ([]Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	books := make([]Book, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, b)
	}
	return books, nil
}

func (s *inMemoryBookStorage) Save(_ context.Context, book Book) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if book.ID == "" {
		book.ID = s.ids.Generate(BookIDPrefix)
	}
	s.books[book.ID] = book
	return book, nil
}

func (s *inMemoryBookStorage) Update(_ context.Context, book Book) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[book.ID]; !ok {
		return Book{}, ErrBookNotFound
	}
	s.books[book.ID] = book
	return book, nil
}

func (s *inMemoryBookStorage) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *inMemoryBookStorage) Ping(context.Context) error { return nil }

// MockPublisher records every pushed change.
type MockPublisher struct {
	mu       sync.Mutex
	PushFunc func(ctx context.Context, qid string, book Book) error
	Pushed   []string
}

func (m *MockPublisher) Push(ctx context.Context, qid string, book Book) error {
	m.mu.Lock()
	m.Pushed = append(m.Pushed, qid+":"+book.ID)
	m.mu.Unlock()
	if m.PushFunc == nil {
		return nil
	}
	return m.PushFunc(ctx, qid, book)
}

// MockQueuer implements a fake Queuer.
type MockQueuer struct {
	PushFunc func(ctx context.Context, qid string, book Book) error
	PopFunc  func(ctx context.Context, qids ...string) (string, Book, error)
}

func (m *MockQueuer) Push(ctx context.Context, qid string, book Book) error {
	return m.PushFunc(ctx, qid, book)
}

func (m *MockQueuer) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	return m.PopFunc(ctx, qids...)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// NewTicker lets the mock stamp logs too.
func (mck *MockClocker) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	if prefix == "" {
		return muid.MockedUID
	}
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// gatsby returns the sample book used across tests.
func gatsby() Book {
	return NewBook("The Great Gatsby", "A classic American novel", decimal.RequireFromString("19.99"), 10)
}

// bookNamed returns a book with only its name and stock set.
func bookNamed(name string, stock int) Book {
	return Book{Name: &name, Description: nil, Price: nil, Stock: &stock}
}

// strPtr returns a pointer to a copy of s.
func strPtr(s string) *string {
	return &s
}
