package api

import (
	"context"

	"visor-api/domain"
)

// Documents gives handlers access to the document. Read returns a private
// copy; Mutate persists the changes made by fn and announces them.
type Documents interface {
	Read(ctx context.Context) (*domain.Document, error)
	Mutate(ctx context.Context, fn func(doc *domain.Document) error) error
}

// Subscriber is implemented by sources of change signals for the event stream.
type Subscriber interface {
	Subscribe() chan struct{}
	Unsubscribe(ch chan struct{})
}
