package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Persistence is a single durable slot holding the serialized store.
// Writers always replace the whole value; the last writer wins.
type Persistence interface {
	// Load returns the stored snapshot, or nil with no error when nothing
	// has been saved yet.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, data []byte) error

	// Stat describes the stored snapshot.
	Stat(ctx context.Context) (Info, error)

	// Path returns where the snapshot lives (file or database path).
	Path() string

	// Close releases file handles and resources.
	Close() error
}

// Info describes a persisted snapshot.
type Info struct {
	Exists  bool
	Size    int64
	ModTime time.Time
}

// ErrPersistenceClosed is returned when operations are attempted on a closed persistence.
var ErrPersistenceClosed = errors.New("persistence is closed")

// FilePersistence stores the snapshot as a JSON file.
type FilePersistence struct {
	mu     sync.RWMutex
	path   string
	closed bool
}

// NewFilePersistence creates a FilePersistence for path.
// The parent directory is created if needed; the file itself is only
// written on the first Save.
func NewFilePersistence(path string) (*FilePersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &FilePersistence{path: path}, nil
}

// Load reads the snapshot file.
func (p *FilePersistence) Load(ctx context.Context) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPersistenceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	return data, nil
}

// Save writes the snapshot atomically via a temp file and rename.
func (p *FilePersistence) Save(ctx context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return err
	}

	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", p.path, err)
	}
	return nil
}

// Stat reports size and modification time of the snapshot file.
func (p *FilePersistence) Stat(ctx context.Context) (Info, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return Info{}, ErrPersistenceClosed
	}

	fi, err := os.Stat(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, nil
		}
		return Info{}, err
	}
	return Info{Exists: true, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

// Path returns the snapshot file path.
func (p *FilePersistence) Path() string {
	return p.path
}

// Close marks the persistence closed. There are no open handles between calls.
func (p *FilePersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// RecoverFromCorruption moves an unparseable snapshot file aside so the
// next save starts clean. It returns the backup path, or "" when the file
// is missing or decodes fine.
func RecoverFromCorruption(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	if _, err := Decode(data); err == nil {
		return "", nil
	}

	backupPath := path + ".corrupted." + time.Now().Format("20060102-150405")
	if err := os.Rename(path, backupPath); err != nil {
		return "", fmt.Errorf("failed to backup corrupted file: %w", err)
	}
	return backupPath, nil
}
