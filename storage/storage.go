package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"visor-api/domain"
)

// FileName is the name of the document inside the data directory.
const FileName = "data.json"

// ErrIncompatibleDocument is returned by Load when the stored bytes are valid
// JSON but do not decode into a document. Such a file is never overwritten by
// a load-modify-save cycle.
var ErrIncompatibleDocument = errors.New("stored document has an unexpected shape")

var errNotJSON = errors.New("stored document is not JSON")

// Store loads and saves the whole document.
type Store interface {
	// Load returns an empty document when none is stored or the stored bytes
	// are not JSON at all.
	Load(ctx context.Context) (*domain.Document, error)
	Save(ctx context.Context, doc *domain.Document) error
	// ReadRaw returns the stored bytes and whether a document exists.
	ReadRaw(ctx context.Context) ([]byte, bool, error)
}

// FileStore keeps the document in a single JSON file.
type FileStore struct {
	dir    string
	logger *log.Logger
}

// DefaultDir returns ~/.visor.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".visor"), nil
}

// NewFileStore creates a store rooted at dir. The directory is created on the
// first save.
func NewFileStore(dir string, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &FileStore{dir: dir, logger: logger}
}

// Path returns the location of the document.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, FileName)
}

func (s *FileStore) ReadRaw(_ context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", s.Path(), err)
	}
	return data, true, nil
}

func (s *FileStore) Load(ctx context.Context) (*domain.Document, error) {
	data, exists, err := s.ReadRaw(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("document unreadable, using empty document")
		return domain.NewDocument(), nil
	}
	if !exists {
		return domain.NewDocument(), nil
	}
	doc, err := decodeStored(data)
	switch {
	case errors.Is(err, errNotJSON):
		s.logger.WithError(err).WithField("path", s.Path()).Warn("document corrupt, using empty document")
		return domain.NewDocument(), nil
	case err != nil:
		s.logger.WithError(err).WithField("path", s.Path()).Error("document not loaded")
		return nil, err
	}
	return doc, nil
}

// decodeStored parses stored bytes, telling garbage apart from valid JSON the
// document types cannot hold.
func decodeStored(data []byte) (*domain.Document, error) {
	doc, err := domain.ParseDocument(data)
	if err == nil {
		return doc, nil
	}
	if !sonic.ConfigStd.Valid(data) {
		return nil, fmt.Errorf("%w: %v", errNotJSON, err)
	}
	return nil, fmt.Errorf("%w: %v", ErrIncompatibleDocument, err)
}

func (s *FileStore) Save(_ context.Context, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return s.writeAtomic(data)
}

// writeAtomic writes data next to the target, syncs it and renames it into
// place, so the previous document survives any failure.
func (s *FileStore) writeAtomic(data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		cleanup()
		return fmt.Errorf("replace document: %w", err)
	}
	if err := syncDir(s.dir); err != nil {
		s.logger.WithError(err).Debug("sync data dir")
	}
	return nil
}

func syncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}

// encodeDocument renders the document with two-space indentation.
func encodeDocument(doc *domain.Document) ([]byte, error) {
	compact, err := doc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
