package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")

	// Article errors
	ErrArticleNotFound   = errors.New("article not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Image chain errors
	ErrImageChainExhausted = errors.New("no valid image candidate from any provider")

	// Agent errors
	ErrUnknownBackendClass = errors.New("unknown backend class")
)
