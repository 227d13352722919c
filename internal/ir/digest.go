package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// Domain prefixes keep digests of different value kinds apart.
// The version suffix allows a future algorithm migration.
const (
	DomainContent        = "nanoc/content/v1"
	DomainAttribute      = "nanoc/attribute/v1"
	DomainAttributes     = "nanoc/attributes/v1"
	DomainActionSequence = "nanoc/action-sequence/v1"
	DomainCacheKey       = "nanoc/cache-key/v1"
)

// Algorithm names a digest function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm validates an algorithm name. The empty string selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unknown checksum algorithm %q (want sha256 or blake3)", name)
	}
}

// Checksummer computes domain-separated hex digests.
// The zero value uses SHA256.
type Checksummer struct {
	Algorithm Algorithm
}

// NewChecksummer returns a Checksummer for the given algorithm.
func NewChecksummer(alg Algorithm) Checksummer {
	return Checksummer{Algorithm: alg}
}

func (c Checksummer) newHash() hash.Hash {
	if c.Algorithm == BLAKE3 {
		return blake3.New()
	}
	return sha256.New()
}

// Sum computes digest(domain + 0x00 + data) prefixed with the algorithm name,
// so checksums written under one algorithm never equal another's.
func (c Checksummer) Sum(domain string, data []byte) string {
	h := c.newHash()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	alg := c.Algorithm
	if alg == "" {
		alg = SHA256
	}
	return string(alg) + ":" + hex.EncodeToString(h.Sum(nil))
}

// Content digests raw bytes.
func (c Checksummer) Content(data []byte) string {
	return c.Sum(DomainContent, data)
}

// Value digests a single attribute value through its canonical encoding.
func (c Checksummer) Value(v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("checksum attribute: %w", err)
	}
	return c.Sum(DomainAttribute, canonical), nil
}

// Attributes digests a whole attribute mapping.
func (c Checksummer) Attributes(obj IRObject) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("checksum attributes: %w", err)
	}
	return c.Sum(DomainAttributes, canonical), nil
}

// AttributeMap digests each top-level attribute separately.
func (c Checksummer) AttributeMap(obj IRObject) (map[string]string, error) {
	out := make(map[string]string, len(obj))
	for _, k := range obj.SortedKeys() {
		sum, err := c.Value(obj[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = sum
	}
	return out, nil
}

// Structured digests an arbitrary canonical-encodable value under domain.
func (c Checksummer) Structured(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", domain, err)
	}
	return c.Sum(domain, canonical), nil
}

// MustValue is like Value but panics on error.
// Use only in tests or when inputs are known to be valid.
func (c Checksummer) MustValue(v IRValue) string {
	sum, err := c.Value(v)
	if err != nil {
		panic(err)
	}
	return sum
}
