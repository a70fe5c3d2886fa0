// Package s3test runs node stores against an in-process S3 server.
package s3test

import (
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	s3Persist "github.com/jrhy/bmt/persist/s3"
	"github.com/stretchr/testify/require"
)

// Credentials and region the fake server accepts. The SDK insists on both
// even though nothing checks them.
const (
	AccessKeyID     = "TEST-ACCESSKEYID"
	SecretAccessKey = "TEST-SECRETACCESSKEY"
	Region          = "ca-west-1"
)

// Bucket is an empty bucket on its own gofakes3 server.
type Bucket struct {
	Client   *s3.S3
	Name     string
	Endpoint string
}

// NewBucket starts a memory-backed server holding one empty bucket. The
// server is stopped when t finishes.
func NewBucket(t testing.TB) Bucket {
	t.Helper()
	server := httptest.NewServer(gofakes3.New(s3mem.New()).Server())
	t.Cleanup(server.Close)
	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(AccessKeyID, SecretAccessKey, ""),
		Endpoint:         aws.String(server.URL),
		Region:           aws.String(Region),
		DisableSSL:       aws.Bool(true),
		S3ForcePathStyle: aws.Bool(true),
	})
	require.NoError(t, err)
	b := Bucket{Client: s3.New(sess), Name: "bmt-nodes", Endpoint: server.URL}
	_, err = b.Client.CreateBucket(&s3.CreateBucketInput{Bucket: aws.String(b.Name)})
	require.NoError(t, err)
	return b
}

// Persist returns a node store over the bucket, keeping its records under
// prefix.
func (b Bucket) Persist(prefix string) *s3Persist.Persist {
	return s3Persist.NewPersist(b.Client, b.Name, prefix)
}

// Keys lists every object key in the bucket, sorted.
func (b Bucket) Keys(t testing.TB) []string {
	t.Helper()
	var keys []string
	err := b.Client.ListObjectsV2Pages(&s3.ListObjectsV2Input{Bucket: aws.String(b.Name)},
		func(page *s3.ListObjectsV2Output, _ bool) bool {
			for _, o := range page.Contents {
				keys = append(keys, aws.StringValue(o.Key))
			}
			return true
		})
	require.NoError(t, err)
	sort.Strings(keys)
	return keys
}
