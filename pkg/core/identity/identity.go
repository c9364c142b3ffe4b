// Package identity defines the public key type that identifies a participant
// on the network, together with its textual encodings.
//
// Keys travel in two textual forms: 64-character lowercase hex, and the
// bech32 "npub" form used in user-facing contexts. Both are accepted by
// Parse; malformed input always surfaces as *ParseError.
package identity

import (
	"encoding/hex"
	"fmt"
)

// Size is the length in bytes of a raw public key.
const Size = 32

// PublicKey is an x-only secp256k1 public key. It is a value type: equality
// and map-key behaviour follow the raw bytes.
type PublicKey [Size]byte

// ParseError reports malformed textual key input. It is always a local
// error; retrying the same input can never succeed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid public key %q: %s", e.Input, e.Reason)
}

// Parse decodes a public key from its hex or npub form.
func Parse(s string) (PublicKey, error) {
	if len(s) == 2*Size {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return PublicKey{}, &ParseError{Input: s, Reason: "not valid hex"}
		}
		return FromBytes(raw)
	}

	hrp, data, err := DecodeBech32(s)
	if err != nil {
		return PublicKey{}, &ParseError{Input: s, Reason: err.Error()}
	}
	if hrp != "npub" {
		return PublicKey{}, &ParseError{Input: s, Reason: fmt.Sprintf("unexpected prefix %q", hrp)}
	}
	return FromBytes(data)
}

// FromBytes builds a key from exactly Size raw bytes.
func FromBytes(b []byte) (PublicKey, error) {
	if len(b) != Size {
		return PublicKey{}, &ParseError{
			Input:  hex.EncodeToString(b),
			Reason: fmt.Sprintf("want %d bytes, got %d", Size, len(b)),
		}
	}
	var pk PublicKey
	copy(pk[:], b)
	return pk, nil
}

// Hex returns the 64-character lowercase hex form.
func (pk PublicKey) Hex() string {
	return hex.EncodeToString(pk[:])
}

// Npub returns the bech32 "npub1..." form.
func (pk PublicKey) Npub() string {
	s, err := EncodeBech32("npub", pk[:])
	if err != nil {
		// Unreachable: hrp and length are fixed here.
		panic(err)
	}
	return s
}

func (pk PublicKey) String() string {
	return pk.Npub()
}
