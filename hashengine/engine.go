package hashengine

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// DigestSize is the length of every digest produced by the engine in bytes.
const DigestSize = chainhash.HashSize

// DigestBits is the bit length of a digest, the largest satisfiable difficulty.
const DigestBits = DigestSize * 8

// Digest is the fixed-length output of a double hash in raw byte order,
// i.e. digest[0] holds the leading bits that the difficulty is checked against.
type Digest [DigestSize]byte

// ErrInvalidDigest is returned when a hex string does not decode to a Digest.
var ErrInvalidDigest = errors.New("invalid digest")

// Hex encodes the digest in lowercase hexadecimal, without any byte reversal.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) String() string {
	return d.Hex()
}

// ParseDigest decodes a 64 character hexadecimal string into a Digest.
func ParseDigest(s string) (d Digest, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("%w: %w", ErrInvalidDigest, err)
	}
	if len(b) != DigestSize {
		return d, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidDigest, DigestSize, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// DoubleHash computes SHA256(SHA256(input)).
func DoubleHash(input []byte) Digest {
	return Digest(chainhash.DoubleHashH(input))
}

// MeetsDifficulty reports whether the digest has at least `difficulty` leading
// zero bits. A difficulty of zero is always met; a difficulty beyond the digest
// length can never be met.
func MeetsDifficulty(d Digest, difficulty uint32) bool {
	if difficulty > DigestBits {
		return false
	}
	fullBytes := int(difficulty / 8)
	remainingBits := difficulty % 8

	for i := 0; i < fullBytes; i++ {
		if d[i] != 0 {
			return false
		}
	}

	// difficulty <= DigestBits, so fullBytes < DigestSize whenever bits remain
	if remainingBits > 0 {
		mask := byte(0xFF) << (8 - remainingBits)
		if d[fullBytes]&mask != 0 {
			return false
		}
	}
	return true
}

// LeadingZeroBits counts the leading zero bits of a digest.
func LeadingZeroBits(d Digest) uint32 {
	var n uint32
	for _, b := range d {
		if b == 0 {
			n += 8
			continue
		}
		for mask := byte(0x80); mask != 0 && b&mask == 0; mask >>= 1 {
			n++
		}
		break
	}
	return n
}

// Candidate appends the header and the decimal representation of the nonce
// to buf[:0] and returns the result. Passing the previous result as buf
// avoids an allocation per nonce.
func Candidate(buf []byte, header string, nonce uint64) []byte {
	buf = append(buf[:0], header...)
	return strconv.AppendUint(buf, nonce, 10)
}

// -------------------- algorithms -------------------- >>

// Algorithm selects the inner hash function of the double hash.
// All algorithms produce DigestSize bytes, so MeetsDifficulty applies to each.
type Algorithm string

const (
	SHA256d     Algorithm = "sha256d"
	Blake2b256d Algorithm = "blake2b256d"
	SHA3_256d   Algorithm = "sha3-256d"
)

// ErrUnknownAlgorithm is returned by ParseAlgorithm for unsupported names.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Algorithms lists the supported algorithm names.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256d, Blake2b256d, SHA3_256d}
}

// ParseAlgorithm parses a case-insensitive algorithm name; the empty string means SHA256d.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return SHA256d, nil
	}
	for _, alg := range Algorithms() {
		if string(alg) == name {
			return alg, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// DoubleHash computes hash(hash(input)) with the selected inner hash.
// An unset Algorithm behaves like SHA256d.
func (a Algorithm) DoubleHash(input []byte) Digest {
	switch a {
	case Blake2b256d:
		first := blake2b.Sum256(input)
		return blake2b.Sum256(first[:])
	case SHA3_256d:
		first := sha3.Sum256(input)
		return sha3.Sum256(first[:])
	default:
		return DoubleHash(input)
	}
}

func (a Algorithm) String() string {
	if a == "" {
		return string(SHA256d)
	}
	return string(a)
}
