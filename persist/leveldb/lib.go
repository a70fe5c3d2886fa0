package leveldb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Options configures a LevelDB-backed Persist.
type Options struct {
	DataDirectoryPath string `yaml:"DataDirectoryPath"`
	ReadOnly          bool   `yaml:"ReadOnly"`
}

// Persist implements the bmt.Persist interface over a LevelDB database.
type Persist struct {
	db *leveldb.DB
}

// NewPersist opens (creating if necessary) the database in
// opts.DataDirectoryPath.
func NewPersist(opts Options) (*Persist, error) {
	var o = new(opt.Options)
	if opts.ReadOnly {
		o.ReadOnly = true
		o.ErrorIfMissing = true
	}
	o.Filter = filter.NewBloomFilter(10)
	db, err := leveldb.OpenFile(opts.DataDirectoryPath, o)
	if err != nil {
		return nil, err
	}
	return &Persist{db: db}, nil
}

// Load returns the named record. A missing record yields an error wrapping
// fs.ErrNotExist.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	v, err := p.db.Get([]byte(name), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%s: %v: %w", name, err, fs.ErrNotExist)
	}
	return v, err
}

// Store puts the named record, replacing any previous value.
func (p *Persist) Store(ctx context.Context, name string, value []byte) error {
	return p.db.Put([]byte(name), value, nil)
}

// Delete removes the named record; deleting a missing record succeeds.
func (p *Persist) Delete(ctx context.Context, name string) error {
	return p.db.Delete([]byte(name), nil)
}

// Close releases the database.
func (p *Persist) Close() error {
	return p.db.Close()
}
