package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

// DigestSize is the digest length, in bytes, of every supported algorithm.
const DigestSize = 32

// DigestHexLen is the length of a hex-encoded digest.
const DigestHexLen = 2 * DigestSize

// Algorithm names a supported hash function.
type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	SHA3256    Algorithm = "sha3-256"
	Keccak256  Algorithm = "keccak256"
	BLAKE2b256 Algorithm = "blake2b-256"
	BLAKE2s256 Algorithm = "blake2s-256"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = SHA256

var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

var constructors = map[Algorithm]func() hash.Hash{
	SHA256:    sha256.New,
	SHA3256:   sha3.New256,
	Keccak256: sha3.NewLegacyKeccak256,
	BLAKE2b256: func() hash.Hash {
		// only fails for keys longer than 64 bytes
		h, _ := blake2b.New256(nil)
		return h
	},
	BLAKE2s256: func() hash.Hash {
		h, _ := blake2s.New256(nil)
		return h
	},
}

// ParseAlgorithm resolves a case-insensitive algorithm name. The empty string
// selects DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return DefaultAlgorithm, nil
	}
	alg := Algorithm(n)
	if _, ok := constructors[alg]; !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownAlgorithm, name, strings.Join(Names(), ", "))
	}
	return alg, nil
}

// Names lists the supported algorithm names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for alg := range constructors {
		names = append(names, string(alg))
	}
	sort.Strings(names)
	return names
}

// Constructor returns the hasher constructor for alg, so callers that need
// many hashers resolve the algorithm once.
func Constructor(alg Algorithm) (func() hash.Hash, error) {
	if alg == "" {
		alg = DefaultAlgorithm
	}
	ctor, ok := constructors[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
	return ctor, nil
}

// NewHasher returns a fresh hasher for alg.
func NewHasher(alg Algorithm) (hash.Hash, error) {
	ctor, err := Constructor(alg)
	if err != nil {
		return nil, err
	}
	return ctor(), nil
}

// SumInto hashes input with the provided hasher and appends the digest to
// out[:0]. Reuses the hasher to avoid allocations in the hot path.
func SumInto(hasher hash.Hash, input, out []byte) []byte {
	hasher.Reset()
	hasher.Write(input)
	return hasher.Sum(out[:0])
}

// HexDigest hashes input with alg and returns the lowercase hex digest.
func HexDigest(alg Algorithm, input []byte) (string, error) {
	h, err := NewHasher(alg)
	if err != nil {
		return "", err
	}
	h.Write(input)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NormalizePrefix validates a target prefix and returns it in lowercase.
// Accepts an optional 0x marker. Returns false for empty, non-hex, or
// longer-than-digest prefixes.
func NormalizePrefix(prefix string) (string, bool) {
	p := strings.TrimSpace(prefix)
	if len(p) >= 2 && (p[0:2] == "0x" || p[0:2] == "0X") {
		p = p[2:]
	}
	if p == "" || len(p) > DigestHexLen {
		return "", false
	}
	p = strings.ToLower(p)
	for i := 0; i < len(p); i++ {
		c := p[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", false
		}
	}
	return p, true
}

// HexToBytes decodes a hex string, with or without 0x, to bytes.
func HexToBytes(hexStr string) ([]byte, error) {
	h := strings.TrimSpace(hexStr)
	if len(h) >= 2 && (h[0:2] == "0x" || h[0:2] == "0X") {
		h = h[2:]
	}
	if len(h)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}
	return hex.DecodeString(h)
}
