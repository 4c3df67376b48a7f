package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/kamaub/marketplace_api/backend"
)

var (
	store    backend.Store
	blobs    backend.Blobs
	validate = validator.New()
)

// Init wires the backend collaborators. main calls it once before routes
// are registered; tests call it with the in-memory store.
func Init(s backend.Store, b backend.Blobs) {
	store = s
	blobs = b
}
