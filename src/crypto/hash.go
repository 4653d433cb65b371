package crypto

import (
	"bytes"
	"crypto/sha256"

	"github.com/ugorji/go/codec"
)

// SHA256 returns the SHA256 hash of the data.
func SHA256(data []byte) []byte {
	hasher := sha256.New()
	hasher.Write(data)
	hash := hasher.Sum(nil)
	return hash
}

// CanonicalMarshal encodes v as canonical JSON (sorted map keys). All hashed
// structures go through this function; a non-canonical encoder would make
// hashes differ between nodes.
func CanonicalMarshal(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// CanonicalUnmarshal decodes canonical JSON produced by CanonicalMarshal.
func CanonicalUnmarshal(data []byte, v interface{}) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(v)
}

// HashStruct returns the SHA256 hash of the canonical JSON encoding of v.
func HashStruct(v interface{}) ([]byte, error) {
	data, err := CanonicalMarshal(v)
	if err != nil {
		return nil, err
	}
	return SHA256(data), nil
}
