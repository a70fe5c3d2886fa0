/*
Package persist selects and opens node storage from configuration.

	Type: boltdb
	Digest: sha256
	NodeCacheSize: 4096
	BoltDBOptions:
	  FilePath: ./data/nodes.bolt

Supported types are inmemory, file, boltdb, leveldb and s3.
*/
package persist

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/jrhy/bmt"
	"github.com/jrhy/bmt/persist/bolt"
	"github.com/jrhy/bmt/persist/file"
	"github.com/jrhy/bmt/persist/leveldb"
	s3Persist "github.com/jrhy/bmt/persist/s3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type (
	// Config describes where node records live and how they are hashed.
	Config struct {
		Type           string          `yaml:"Type"`
		Digest         string          `yaml:"Digest"`
		NodeCacheSize  int             `yaml:"NodeCacheSize"`
		FileOptions    FileOptions     `yaml:"FileOptions"`
		BoltDBOptions  bolt.Options    `yaml:"BoltDBOptions"`
		LevelDBOptions leveldb.Options `yaml:"LevelDBOptions"`
		S3Options      S3Options       `yaml:"S3Options"`
	}
	// FileOptions configures one-file-per-record storage.
	FileOptions struct {
		Directory string `yaml:"Directory"`
	}
	// S3Options configures object storage. Credentials come from the
	// environment, as for any aws-sdk-go session.
	S3Options struct {
		Bucket         string `yaml:"Bucket"`
		Prefix         string `yaml:"Prefix"`
		Region         string `yaml:"Region"`
		Endpoint       string `yaml:"Endpoint"`
		ForcePathStyle bool   `yaml:"ForcePathStyle"`
	}
)

// ParseConfig decodes a yaml configuration.
func ParseConfig(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse persist config: %w", err)
	}
	return cfg, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the configured Persist and a Closer releasing whatever it
// holds open.
func Open(cfg Config) (bmt.Persist, io.Closer, error) {
	switch cfg.Type {
	case "inmemory":
		return bmt.NewInMemoryStore(), nopCloser{}, nil
	case "file":
		p, err := file.NewPersistForPath(cfg.FileOptions.Directory)
		if err != nil {
			return nil, nil, fmt.Errorf("open file persist: %w", err)
		}
		return p, nopCloser{}, nil
	case "boltdb":
		p, err := bolt.NewPersist(cfg.BoltDBOptions)
		if err != nil {
			return nil, nil, fmt.Errorf("open boltdb persist: %w", err)
		}
		return p, p, nil
	case "leveldb":
		p, err := leveldb.NewPersist(cfg.LevelDBOptions)
		if err != nil {
			return nil, nil, fmt.Errorf("open leveldb persist: %w", err)
		}
		return p, p, nil
	case "s3":
		o := cfg.S3Options
		if o.Bucket == "" {
			return nil, nil, fmt.Errorf("s3 persist needs a bucket: %w", bmt.ErrInvalidParameter)
		}
		awsConfig := aws.Config{S3ForcePathStyle: aws.Bool(o.ForcePathStyle)}
		if o.Region != "" {
			awsConfig.Region = aws.String(o.Region)
		}
		if o.Endpoint != "" {
			awsConfig.Endpoint = aws.String(o.Endpoint)
		}
		sess, err := session.NewSession(&awsConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("open s3 persist: %w", err)
		}
		return s3Persist.NewPersist(s3.New(sess), o.Bucket, o.Prefix), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage: %s: %w", cfg.Type, bmt.ErrInvalidParameter)
	}
}

// NewBackend opens the configured Persist and returns a StoreBackend over
// it. The "inmemory" type yields an InMemoryBackend instead, which keeps
// decoded nodes rather than records. logger and metrics may be nil.
func NewBackend(cfg Config, logger *zap.Logger, metrics *bmt.Metrics) (bmt.Backend, io.Closer, error) {
	digest, err := bmt.DigestByName(cfg.Digest)
	if err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bc := bmt.BackendConfig{Digest: digest, Logger: logger, Metrics: metrics}
	if cfg.Type == "inmemory" {
		return bmt.NewInMemoryBackend(&bc), nopCloser{}, nil
	}
	p, closer, err := Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	sc := bmt.StoreConfig{BackendConfig: bc, StoreNodesWith: p}
	if cfg.NodeCacheSize > 0 {
		sc.NodeCache = bmt.NewNodeCache(cfg.NodeCacheSize)
	}
	db, err := bmt.NewStoreBackend(sc)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	logger.Info("opened node storage", zap.String("type", cfg.Type), zap.String("digest", cfg.Digest))
	return db, closer, nil
}
