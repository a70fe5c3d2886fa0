package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/hashicorp/golang-lru/simplelru"
)

// DefaultCacheSize is the number of records kept in the read cache.
const DefaultCacheSize = 1000

type S3Interface interface {
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// Persist implements the bmt.Persist interface for storing, loading and
// deleting node records as objects in a bucket. Records carry reference
// counts and so change in place; the read cache is kept in step with every
// Store and Delete made through this Persist.
type Persist struct {
	s3         S3Interface
	BucketName string
	Prefix     string

	l   sync.Mutex
	lru *simplelru.LRU
}

// Load loads the bytes persisted in the named object. A missing object
// yields an error wrapping fs.ErrNotExist.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	p.l.Lock()
	cached, ok := p.lru.Get(name)
	p.l.Unlock()
	if ok {
		return append([]byte(nil), cached.([]byte)...), nil
	}
	input := s3.GetObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(p.Prefix + name),
	}
	output, err := p.s3.GetObjectWithContext(ctx, &input)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %v: %w", name, err, fs.ErrNotExist)
		}
		return nil, err
	}
	defer output.Body.Close()
	b, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, err
	}
	p.l.Lock()
	p.lru.Add(name, append([]byte(nil), b...))
	p.l.Unlock()
	return b, nil
}

// Store puts the given bytes in the named object, replacing any previous
// contents.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	input := s3.PutObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(p.Prefix + name),
		Body:   bytes.NewReader(b),
	}
	_, err := p.s3.PutObjectWithContext(ctx, &input)
	p.l.Lock()
	if err != nil {
		p.lru.Remove(name)
	} else {
		p.lru.Add(name, append([]byte(nil), b...))
	}
	p.l.Unlock()
	return err
}

// Delete removes the named object.
func (p *Persist) Delete(ctx context.Context, name string) error {
	p.l.Lock()
	p.lru.Remove(name)
	p.l.Unlock()
	input := s3.DeleteObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(p.Prefix + name),
	}
	_, err := p.s3.DeleteObjectWithContext(ctx, &input)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return true
	}
	return false
}

// NewPersist returns a Persist that loads and stores node records as
// objects with the given S3 client and bucket name, under the given key
// prefix.
func NewPersist(client S3Interface, bucketName, prefix string) *Persist {
	lru, err := simplelru.NewLRU(DefaultCacheSize, nil)
	if err != nil {
		panic(err)
	}
	return &Persist{s3: client, BucketName: bucketName, Prefix: prefix, lru: lru}
}
