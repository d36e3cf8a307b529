package values

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

const digestAlgorithm = "blake3"

// Digest is a content hash in "<algorithm>:<hex>" form.
type Digest struct {
	value string
}

// DigestOf hashes content with BLAKE3-256.
func DigestOf(content []byte) Digest {
	sum := blake3.Sum256(content)
	return Digest{value: digestAlgorithm + ":" + hex.EncodeToString(sum[:])}
}

// ParseDigest validates a digest string read from a manifest.
func ParseDigest(s string) (Digest, error) {
	algo, hexPart, ok := strings.Cut(s, ":")
	if !ok || algo != digestAlgorithm {
		return Digest{}, fmt.Errorf("invalid digest %q: expected %s:<hex>", s, digestAlgorithm)
	}
	if len(hexPart) != 64 {
		return Digest{}, fmt.Errorf("invalid digest %q: expected 64 hex characters", s)
	}
	if _, err := hex.DecodeString(hexPart); err != nil {
		return Digest{}, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	return Digest{value: s}, nil
}

// String returns the string representation
func (d Digest) String() string {
	return d.value
}

// Equals checks if two digests are equal
func (d Digest) Equals(other Digest) bool {
	return d.value == other.value
}

// IsEmpty returns true if this is the zero value
func (d Digest) IsEmpty() bool {
	return d.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Digest) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = Digest{}
		return nil
	}
	parsed, err := ParseDigest(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
