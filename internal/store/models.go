package store

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Document is one stored JSON body keyed by collection path and id. The id
// never appears inside Data.
type Document struct {
	Collection string
	ID         string
	Data       json.RawMessage
	UpdatedAt  time.Time
}

type User struct {
	ID            string
	Email         string
	DisplayName   string
	PasswordHash  string
	Role          string
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
