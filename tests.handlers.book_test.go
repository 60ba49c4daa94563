package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestAPIServer wires the full public stack over the given storage.
func newTestAPIServer(t *testing.T, storage StorageBackend) (*APIHandler, http.Handler) {
	t.Helper()
	config := &Config{Server: ServerConfig{APIPrefix: "/api"}, OpsEndpointsEnable: true}
	clock := NewMockClocker()
	bs := NewBookService(zap.NewNop(), config, storage, nil)
	api := NewAPIHandler(zap.NewNop(), config, &Statistics{started: clock.Now()}, clock, NewIDsHandler(), storage, bs)
	pub, ops := api.MiddlewaresStacks()
	router := api.SetupRoutes(httprouter.New(), &MiddlewareMap{public: pub.Chain, ops: ops.Chain})
	return api, router
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

func decodeBook(t *testing.T, res *http.Response) Book {
	t.Helper()
	defer res.Body.Close()
	var book Book
	require.NoError(t, json.NewDecoder(res.Body).Decode(&book))
	return book
}

// TestStatusHandler ensures api handler can provides its status.
func TestStatusHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	clock := NewMockClocker()
	api := NewAPIHandler(zap.NewNop(), &Config{}, &Statistics{started: clock.Now()}, clock, NewMockUIDHandler("", true), nil, nil)
	api.Status(w, req, httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	m := make(map[string]interface{})
	err = json.Unmarshal(data, &m)
	assert.NoError(t, err)

	_, ok := m["requestid"]
	assert.True(t, ok)
	assert.Equal(t, "up & running since 0 mins", m["status"])
	assert.Equal(t, "Hello. Books store api is available. Enjoy :)", m["message"])
}

func TestCreateThenGetBook(t *testing.T) {
	_, h := newTestAPIServer(t, newInMemoryBookStorage(NewIDsHandler()))

	res := doRequest(t, h, http.MethodPost, "/api/books",
		`{"name":"The Great Gatsby","description":"A classic American novel","price":19.99,"stock":10}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	created := decodeBook(t, res)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "The Great Gatsby", *created.Name)
	assert.Equal(t, "A classic American novel", *created.Description)
	assert.Equal(t, "19.99", created.Price.String())
	assert.Equal(t, 10, *created.Stock)

	res = doRequest(t, h, http.MethodGet, "/api/books/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":"`+created.ID+`","name":"The Great Gatsby","description":"A classic American novel","price":19.99,"stock":10}`,
		string(data),
	)
}

func TestCreateBook_IgnoresClientID(t *testing.T) {
	_, h := newTestAPIServer(t, newInMemoryBookStorage(NewIDsHandler()))
	clientID := uuid.Must(uuid.NewV4()).String()
	res := doRequest(t, h, http.MethodPost, "/api/books", `{"id":"`+clientID+`","name":"x"}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	created := decodeBook(t, res)
	assert.NotEqual(t, clientID, created.ID)
	assert.Nil(t, created.Description)
	assert.Nil(t, created.Price)
	assert.Nil(t, created.Stock)
}

func TestCreateBook_NullNameRoundTrip(t *testing.T) {
	_, h := newTestAPIServer(t, newInMemoryBookStorage(NewIDsHandler()))
	created := decodeBook(t, doRequest(t, h, http.MethodPost, "/api/books", `{"name":null,"stock":1}`))
	assert.Nil(t, created.Name)

	res := doRequest(t, h, http.MethodGet, "/api/books/"+created.ID, nil)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+created.ID+`","name":null,"description":null,"price":null,"stock":1}`, string(data))
}

func TestGetAllBooks(t *testing.T) {
	_, h := newTestAPIServer(t, newInMemoryBookStorage(NewIDsHandler()))

	t.Run("should pass: empty store gives empty array", func(t *testing.T) {
		res := doRequest(t, h, http.MethodGet, "/api/books", nil)
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		data, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(data))
	})

	t.Run("should pass: created books are listed", func(t *testing.T) {
		doRequest(t, h, http.MethodPost, "/api/books", bookNamed("A", 1)).Body.Close()
		doRequest(t, h, http.MethodPost, "/api/books", bookNamed("B", 2)).Body.Close()
		res := doRequest(t, h, http.MethodGet, "/api/books", nil)
		defer res.Body.Close()
		var books []Book
		require.NoError(t, json.NewDecoder(res.Body).Decode(&books))
		assert.Len(t, books, 2)
	})
}

func TestGetOneBook_NotFound(t *testing.T) {
	_, h := newTestAPIServer(t, newInMemoryBookStorage(NewIDsHandler()))
	res := doRequest(t, h, http.MethodGet, "/api/books/"+uuid.Must(uuid.NewV4()).String(), nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestUpdateBook(t *testing.T) {
	_, h := newTestAPIServer(t, newInMemoryBookStorage(NewIDsHandler()))
	created := decodeBook(t, doRequest(t, h, http.MethodPost, "/api/books", gatsby()))

	t.Run("should pass: name updated and id kept", func(t *testing.T) {
		changes := gatsby()
		changes.Name = strPtr("Updated Name")
		res := doRequest(t, h, http.MethodPut, "/api/books/"+created.ID, changes)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		updated := decodeBook(t, res)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Updated Name", *updated.Name)

		got := decodeBook(t, doRequest(t, h, http.MethodGet, "/api/books/"+created.ID, nil))
		assert.Equal(t, "Updated Name", *got.Name)
		assert.Equal(t, "19.99", got.Price.String())
	})

	t.Run("should fail: unknown id gives empty 404", func(t *testing.T) {
		res := doRequest(t, h, http.MethodPut, "/api/books/"+uuid.Must(uuid.NewV4()).String(), gatsby())
		defer res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		data, _ := io.ReadAll(res.Body)
		assert.Empty(t, data)
	})

	t.Run("should fail: malformed body", func(t *testing.T) {
		res := doRequest(t, h, http.MethodPut, "/api/books/"+created.ID, `{"name":`)
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestDeleteBook(t *testing.T) {
	_, h := newTestAPIServer(t, newInMemoryBookStorage(NewIDsHandler()))
	created := decodeBook(t, doRequest(t, h, http.MethodPost, "/api/books", gatsby()))

	res := doRequest(t, h, http.MethodDelete, "/api/books/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	deleted := decodeBook(t, res)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, created.Name, deleted.Name)

	res = doRequest(t, h, http.MethodGet, "/api/books/"+created.ID, nil)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = doRequest(t, h, http.MethodDelete, "/api/books/"+created.ID, nil)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestBookHandlers_BadRequests(t *testing.T) {
	_, h := newTestAPIServer(t, newInMemoryBookStorage(NewIDsHandler()))

	testCases := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"get with non uuid id", http.MethodGet, "/api/books/not-a-uuid", nil},
		{"put with non uuid id", http.MethodPut, "/api/books/42", gatsby()},
		{"delete with non uuid id", http.MethodDelete, "/api/books/42", nil},
		{"post with malformed json", http.MethodPost, "/api/books", `{"name": 12}`},
		{"post without body", http.MethodPost, "/api/books", nil},
	}

	for _, tc := range testCases {
		t.Run("should fail: "+tc.name, func(t *testing.T) {
			res := doRequest(t, h, tc.method, tc.path, tc.body)
			defer res.Body.Close()
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			var apiErr APIError
			require.NoError(t, json.NewDecoder(res.Body).Decode(&apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, res.Header.Get("X-Request-ID"), apiErr.RequestID)
			assert.True(t, strings.HasPrefix(apiErr.RequestID, RequestIDPrefix+":"))
		})
	}
}

func TestBookHandlers_StorageFailures(t *testing.T) {
	failure := errors.New("connection reset")
	repo := &MockBookStorage{
		GetOneFunc: func(context.Context, string) (Book, error) { return Book{}, failure },
		GetAllFunc: func(context.Context) ([]Book, error) { return nil, failure },
		SaveFunc:   func(context.Context, Book) (Book, error) { return Book{}, failure },
		UpdateFunc: func(context.Context, Book) (Book, error) { return Book{}, failure },
		DeleteFunc: func(context.Context, string) error { return failure },
	}
	_, h := newTestAPIServer(t, repo)
	id := uuid.Must(uuid.NewV4()).String()

	testCases := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"get all", http.MethodGet, "/api/books", nil},
		{"get one", http.MethodGet, "/api/books/" + id, nil},
		{"create", http.MethodPost, "/api/books", gatsby()},
		{"update", http.MethodPut, "/api/books/" + id, gatsby()},
		{"delete", http.MethodDelete, "/api/books/" + id, nil},
	}

	for _, tc := range testCases {
		t.Run("should fail: "+tc.name, func(t *testing.T) {
			res := doRequest(t, h, tc.method, tc.path, tc.body)
			defer res.Body.Close()
			assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
			data, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			m := map[string]interface{}{}
			require.NoError(t, json.Unmarshal(data, &m))
			assert.Equal(t, float64(http.StatusInternalServerError), m["status"])
			assert.Equal(t, map[string]interface{}{}, m["data"])
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	repo := newInMemoryBookStorage(NewIDsHandler())
	_, h := newTestAPIServer(t, repo)

	res := doRequest(t, h, http.MethodGet, "/health", nil)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = doRequest(t, h, http.MethodGet, "/ready", nil)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	down := &MockBookStorage{PingFunc: func(context.Context) error { return errors.New("down") }}
	_, h = newTestAPIServer(t, down)
	res = doRequest(t, h, http.MethodGet, "/ready", nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	data, _ := io.ReadAll(res.Body)
	assert.JSONEq(t, `{"status":"unavailable"}`, string(data))
}

func TestNotFoundRoute(t *testing.T) {
	_, h := newTestAPIServer(t, newInMemoryBookStorage(NewIDsHandler()))
	res := doRequest(t, h, http.MethodGet, "/v1/books", nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	m := map[string]string{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&m))
	assert.Equal(t, "route does not exist", m["message"])
	assert.Equal(t, "GET /v1/books", m["path"])
	assert.Equal(t, res.Header.Get("X-Request-ID"), m["requestid"])
}
