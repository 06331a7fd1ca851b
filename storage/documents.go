package storage

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"visor-api/domain"
	"visor-api/notify"
)

// Documents is the single entry point to the document for handlers and the
// desktop shell. Every load-modify-save runs under one lock so concurrent
// writers cannot overwrite each other's changes.
type Documents struct {
	store    Store
	notifier notify.Notifier
	logger   *log.Logger

	mu sync.Mutex
}

func NewDocuments(store Store, notifier notify.Notifier, logger *log.Logger) *Documents {
	if notifier == nil {
		notifier = notify.Nop
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Documents{store: store, notifier: notifier, logger: logger}
}

// Read returns a freshly loaded copy of the document.
func (d *Documents) Read(ctx context.Context) (*domain.Document, error) {
	return d.store.Load(ctx)
}

// ReadRaw returns the stored bytes and whether a document exists.
func (d *Documents) ReadRaw(ctx context.Context) ([]byte, bool, error) {
	return d.store.ReadRaw(ctx)
}

// Mutate loads the document, applies fn and saves the result. If fn fails,
// nothing is written. The change notification is sent once, after a
// successful save.
func (d *Documents) Mutate(ctx context.Context, fn func(doc *domain.Document) error) error {
	if err := d.mutateLocked(ctx, fn); err != nil {
		return err
	}
	d.notifier.DataChanged(ctx)
	return nil
}

func (d *Documents) mutateLocked(ctx context.Context, fn func(doc *domain.Document) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, err := d.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := d.store.Save(ctx, doc); err != nil {
		d.logger.WithError(err).Error("save document failed")
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// SaveRaw replaces the document with data, which must be a JSON object or
// null, and sends the change notification. The stored document is not read,
// so a file that no longer loads can still be replaced.
func (d *Documents) SaveRaw(ctx context.Context, data []byte) error {
	doc, err := domain.ParseDocument(data)
	if err != nil {
		return domain.ValidationError{Message: fmt.Sprintf("invalid document: %v", err)}
	}
	if err := d.replaceLocked(ctx, doc); err != nil {
		return err
	}
	d.notifier.DataChanged(ctx)
	return nil
}

func (d *Documents) replaceLocked(ctx context.Context, doc *domain.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.store.Save(ctx, doc); err != nil {
		d.logger.WithError(err).Error("save document failed")
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
