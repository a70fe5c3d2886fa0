package bolt

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

// Bucket is the bbolt bucket holding every node record.
var Bucket = []byte("nodes")

// Options configures a bbolt-backed Persist.
type Options struct {
	FilePath string `yaml:"FilePath"`
	ReadOnly bool   `yaml:"ReadOnly"`
}

// Persist implements the bmt.Persist interface over one bucket of a bbolt
// database file.
type Persist struct {
	db *bbolt.DB
}

// NewPersist opens (creating if necessary) the database at opts.FilePath.
func NewPersist(opts Options) (*Persist, error) {
	boltOpts := &bbolt.Options{ReadOnly: opts.ReadOnly}
	fileMode := os.FileMode(0o600)
	if !opts.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create dir for BoltDB: %w", err)
		}
	}
	db, err := bbolt.Open(opts.FilePath, fileMode, boltOpts)
	if err != nil {
		return nil, err
	}
	if !opts.ReadOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(Bucket)
			if err != nil {
				return fmt.Errorf("could not create root bucket: %w", err)
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Persist{db: db}, nil
}

// Load copies the named record out of the database. A missing record yields
// an error wrapping fs.ErrNotExist.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	var val []byte
	err := p.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(Bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(name)); v != nil {
			// bbolt values are only valid within the transaction
			val = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return val, nil
}

// Store puts the named record, replacing any previous value.
func (p *Persist) Store(ctx context.Context, name string, value []byte) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Bucket).Put([]byte(name), value)
	})
}

// Delete removes the named record, if present.
func (p *Persist) Delete(ctx context.Context, name string) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Bucket).Delete([]byte(name))
	})
}

// Close releases the database file.
func (p *Persist) Close() error {
	return p.db.Close()
}
