package bmt

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"

	"github.com/minio/blake2b-simd"
	"golang.org/x/crypto/sha3"
)

// Hash is the fixed-width output of a Digest. It names a stored node and
// doubles as its storage key, so it is kept as a string of raw bytes to be
// comparable and usable as a map key.
type Hash string

// HashFromBytes copies b into a Hash.
func HashFromBytes(b []byte) Hash {
	return Hash(b)
}

// Bytes returns a copy of the raw digest bytes.
func (h Hash) Bytes() []byte {
	return []byte(h)
}

// String renders the hash the same way persisted node names are rendered.
func (h Hash) String() string {
	return base64.RawURLEncoding.EncodeToString([]byte(h))
}

// Digest is the cryptographic hash function the tree commits with. The core
// trusts it to be collision free.
type Digest interface {
	// Size is the width of every Hash the digest produces, and the width of
	// a chunk-sized leaf.
	Size() int
	// Compress produces the parent hash of two children.
	Compress(left, right Hash) Hash
	// LeafHash produces the hash a leaf contributes to its parent. Leaves
	// exactly Size() bytes long are their own hash.
	LeafHash(leaf []byte) Hash
}

type hashDigest struct {
	newHash func() hash.Hash
	size    int
}

// NewDigest adapts a hash.Hash constructor into a Digest.
func NewDigest(newHash func() hash.Hash) Digest {
	return &hashDigest{newHash: newHash, size: newHash().Size()}
}

func (d *hashDigest) Size() int {
	return d.size
}

func (d *hashDigest) Compress(left, right Hash) Hash {
	h := d.newHash()
	_, _ = h.Write([]byte(left))
	_, _ = h.Write([]byte(right))
	return Hash(h.Sum(nil))
}

func (d *hashDigest) LeafHash(leaf []byte) Hash {
	if len(leaf) == d.size {
		return Hash(leaf)
	}
	h := d.newHash()
	_, _ = h.Write(leaf)
	return Hash(h.Sum(nil))
}

var (
	// Blake2b256 is the default digest.
	Blake2b256 = NewDigest(blake2b.New256)
	// SHA256 matches the digest used by SSZ hash_tree_root for chunk leaves.
	SHA256 = NewDigest(sha256.New)
	// Keccak256 is the legacy (pre-NIST) Keccak used by Ethereum.
	Keccak256 = NewDigest(sha3.NewLegacyKeccak256)
)

// DigestByName looks up one of the provided digests by its configuration
// name. The empty name selects Blake2b256.
func DigestByName(name string) (Digest, error) {
	switch name {
	case "", "blake2b256":
		return Blake2b256, nil
	case "sha256":
		return SHA256, nil
	case "keccak256":
		return Keccak256, nil
	default:
		return nil, fmt.Errorf("unknown digest %q: %w", name, ErrInvalidParameter)
	}
}
