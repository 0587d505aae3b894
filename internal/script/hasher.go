package script

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Hasher produces a deterministic digest of script contents.
type Hasher interface {
	Hash(contents string) string
}

// HasherFunc adapts a function to the Hasher interface.
type HasherFunc func(contents string) string

// Hash calls f(contents).
func (f HasherFunc) Hash(contents string) string {
	return f(contents)
}

// SHA256Hasher hashes contents with SHA-256 and hex encodes the digest.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(contents string) string {
	sum := sha256.Sum256([]byte(contents))
	return hex.EncodeToString(sum[:])
}

// Blake2bHasher hashes contents with BLAKE2b-256 and hex encodes the digest.
type Blake2bHasher struct{}

func (Blake2bHasher) Hash(contents string) string {
	sum := blake2b.Sum256([]byte(contents))
	return hex.EncodeToString(sum[:])
}

// MD5Hasher hashes contents with MD5 and base64 encodes the digest. It matches
// the hashes written by journals created with the .NET DbUp tooling, so an
// existing ledger can be adopted without invalidating its redeploy entries.
type MD5Hasher struct{}

func (MD5Hasher) Hash(contents string) string {
	sum := md5.Sum([]byte(contents))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// NewHasher returns the hasher registered under name. An empty name selects SHA-256.
func NewHasher(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256":
		return SHA256Hasher{}, nil
	case "blake2b":
		return Blake2bHasher{}, nil
	case "md5":
		return MD5Hasher{}, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", name)
	}
}
