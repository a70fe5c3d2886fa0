package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

// Persist implements the bmt.Persist interface for storing, loading and
// deleting node records as files.
type Persist struct {
	basepath string
}

// Load loads the bytes persisted in the named file. A missing file yields an
// error wrapping fs.ErrNotExist.
func (p Persist) Load(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.basepath, name))
}

// Store replaces the named file with the given bytes. Readers see either the
// old or the new contents, never a partial write.
func (p Persist) Store(ctx context.Context, name string, bytes []byte) error {
	return renameio.WriteFile(filepath.Join(p.basepath, name), bytes, 0o644)
}

// Delete removes the named file, if present.
func (p Persist) Delete(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(p.basepath, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// NewPersistForPath returns a Persist that loads and stores node records as
// files in the directory at the given path, creating it if necessary.
//
//	p, err := NewPersistForPath("/var/db/vectors")
//	blob, err := p.Load(ctx, "mOputiFvL7a2n_-bOkSELDhobKaF8_VdxI1dP7EQe-Q")
func NewPersistForPath(path string) (Persist, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Persist{}, err
	}
	return Persist{path}, nil
}
