// Package shell exposes the document to the desktop shell, which reads and
// writes it as one opaque JSON string.
package shell

import (
	"context"
	"fmt"

	"visor-api/storage"
)

// nullDocument is returned when no data file exists yet.
const nullDocument = "null"

type Bridge struct {
	docs *storage.Documents
}

func NewBridge(docs *storage.Documents) *Bridge {
	return &Bridge{docs: docs}
}

// LoadDocument returns the stored document verbatim, or "null" when nothing
// has been saved yet.
func (b *Bridge) LoadDocument(ctx context.Context) (string, error) {
	data, exists, err := b.docs.ReadRaw(ctx)
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	if !exists {
		return nullDocument, nil
	}
	return string(data), nil
}

// SaveDocument replaces the stored document and announces the change the same
// way an API mutation does.
func (b *Bridge) SaveDocument(ctx context.Context, data string) error {
	return b.docs.SaveRaw(ctx, []byte(data))
}
