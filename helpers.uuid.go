package main

import (
	"strings"

	"github.com/gofrs/uuid"
)

var _ UIDHandler = (*IDsHandler)(nil) // ensure IDsHandler implements UIDHandler.

// UIDHandler generates and checks unique identifiers.
type UIDHandler interface {
	Generate(prefix string) string
	IsValid(id, prefix string) bool
}

// IDsHandler implements the UIDHandler interface.
type IDsHandler struct{}

// NewIDsHandler returns a ready to use IDsHandler.
func NewIDsHandler() *IDsHandler {
	return &IDsHandler{}
}

// Generate provides a random unique identifier. An empty prefix
// yields a bare uuid like the ones used for book ids.
func (idh *IDsHandler) Generate(prefix string) string {
	id := uuid.Must(uuid.NewV4())
	if prefix == "" {
		return id.String()
	}
	return prefix + ":" + id.String()
}

// IsValid checks if a given string is a valid uuid after removal of custom prefix.
func (idh *IDsHandler) IsValid(id, prefix string) bool {
	if prefix != "" {
		if !strings.HasPrefix(id, prefix+":") {
			return false
		}
		id = strings.TrimPrefix(id, prefix+":")
	}
	return uuid.FromStringOrNil(id) != uuid.Nil
}
