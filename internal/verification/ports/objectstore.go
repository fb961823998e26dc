package ports

//go:generate mockgen -source=objectstore.go -destination=mocks/objectstore-mocks.go -package=mocks

import "context"

// ObjectStore keeps uploaded images. Every Put returns a new key and stored
// objects are immutable, so a key is owned by the upload that produced it.
type ObjectStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	// Get returns sentinel.ErrNotFound for unknown keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete is best-effort cleanup; deleting an unknown key is not an error.
	Delete(ctx context.Context, key string) error
}
