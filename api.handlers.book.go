package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Index provides same details like `Status` handler by redirecting the request.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(
		map[string]interface{}{
			"requestid": requestID,
			"status":    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
			"message":   "Hello. Books store api is available. Enjoy :)",
		},
	); err != nil {
		api.logger.Error("failed to send status response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Health tells the process is alive.
func (api *APIHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if err := WriteResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		api.logger.Error("failed to send health response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Ready tells whether the books storage can serve requests.
func (api *APIHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	status, body := http.StatusOK, map[string]string{"status": "ready"}
	if api.pinger != nil {
		if err := api.pinger.Ping(r.Context()); err != nil {
			api.logger.Error("storage is not reachable", zap.String("request.id", requestID), zap.Error(err))
			status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}
		}
	}
	if err := WriteResponse(r.Context(), w, status, body); err != nil {
		api.logger.Error("failed to send ready response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// NotFound answers requests on routes which are not registered.
func (api *APIHandler) NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := api.idsHandler.Generate(RequestIDPrefix)
		w.Header().Set("X-Request-ID", requestID)
		api.logger.Info("route not found",
			zap.String("request.id", requestID),
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
		)
		err := WriteResponse(r.Context(), w, http.StatusNotFound, map[string]string{
			"requestid": requestID,
			"message":   "route does not exist",
			"path":      r.Method + " " + r.URL.Path,
		})
		if err != nil {
			api.logger.Error("failed to send not found response", zap.String("request.id", requestID), zap.Error(err))
		}
	})
}

// sendError writes the json error payload and logs when that fails.
func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, requestID string, status int, message string) {
	errResp := NewAPIError(requestID, status, message, EmptyData)
	if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
		api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// sendNotFound writes an empty 404 response.
func (api *APIHandler) sendNotFound(w http.ResponseWriter, r *http.Request, requestID string) {
	if err := WriteNotFoundResponse(r.Context(), w); err != nil {
		api.logger.Error("failed to send not found response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// bookIDFromParams returns the `:id` path value and whether it is a uuid.
func (api *APIHandler) bookIDFromParams(ps httprouter.Params) (string, bool) {
	id := ps.ByName("id")
	return id, api.idsHandler.IsValid(id, BookIDPrefix)
}

func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		api.logger.Error("failed to get all books", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, requestID, http.StatusInternalServerError, "failed to get all books")
		return
	}
	api.logger.Info("success to get all books", zap.String("request.id", requestID), zap.Int("books.total", len(books)))
	if err = WriteResponse(r.Context(), w, http.StatusOK, books); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id, ok := api.bookIDFromParams(ps)
	if !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, r, requestID, http.StatusBadRequest, "book id provided is not valid")
		return
	}

	book, err := api.bookService.GetOne(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		api.logger.Info("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendNotFound(w, r, requestID)
		return
	}
	if err != nil {
		api.logger.Error("failed to get book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, requestID, http.StatusInternalServerError, "failed to get the book")
		return
	}
	api.logger.Info("success to get book", zap.String("book.id", id), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	book, err := DecodeBookRequestBody(r)
	if err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, requestID, http.StatusBadRequest, "failed to create the book")
		return
	}

	book, err = api.bookService.Create(r.Context(), book)
	if err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, requestID, http.StatusInternalServerError, "failed to create the book")
		return
	}
	api.logger.Info("success to create book", zap.String("book.id", book.ID), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id, ok := api.bookIDFromParams(ps)
	if !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, r, requestID, http.StatusBadRequest, "book id provided is not valid")
		return
	}

	book, err := DecodeBookRequestBody(r)
	if err != nil {
		api.logger.Error("failed to update book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, requestID, http.StatusBadRequest, "failed to update the book")
		return
	}

	book, err = api.bookService.Update(r.Context(), id, book)
	if errors.Is(err, ErrBookNotFound) {
		api.logger.Info("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendNotFound(w, r, requestID)
		return
	}
	if err != nil {
		api.logger.Error("failed to update book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, requestID, http.StatusInternalServerError, "failed to update the book")
		return
	}
	api.logger.Info("success to update book", zap.String("book.id", id), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id, ok := api.bookIDFromParams(ps)
	if !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, r, requestID, http.StatusBadRequest, "book id provided is not valid")
		return
	}

	book, err := api.bookService.Delete(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		api.logger.Info("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendNotFound(w, r, requestID)
		return
	}
	if err != nil {
		api.logger.Error("failed to delete book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, r, requestID, http.StatusInternalServerError, "failed to delete the book")
		return
	}
	api.logger.Info("success to delete book", zap.String("book.id", id), zap.String("request.id", requestID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}
