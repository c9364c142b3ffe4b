package nostr

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

// SecretKey is a signing key. The zero value is not usable; obtain one via
// ParseSecretKey or GenerateSecretKey.
type SecretKey struct {
	k *btcec.PrivateKey
}

// ParseSecretKey accepts either 64 hex characters or the bech32 "nsec" form.
func ParseSecretKey(s string) (SecretKey, error) {
	s = strings.TrimSpace(s)

	var raw []byte
	if strings.HasPrefix(strings.ToLower(s), "nsec1") {
		hrp, data, err := identity.DecodeBech32(s)
		if err != nil {
			return SecretKey{}, fmt.Errorf("decode nsec: %w", err)
		}
		if hrp != "nsec" {
			return SecretKey{}, fmt.Errorf("unexpected bech32 prefix %q", hrp)
		}
		raw = data
	} else {
		var err error
		raw, err = hex.DecodeString(s)
		if err != nil {
			return SecretKey{}, fmt.Errorf("decode secret key hex: %w", err)
		}
	}
	if len(raw) != 32 {
		return SecretKey{}, fmt.Errorf("secret key must be 32 bytes, got %d", len(raw))
	}

	k, _ := btcec.PrivKeyFromBytes(raw)
	return SecretKey{k: k}, nil
}

// GenerateSecretKey returns a fresh random key.
func GenerateSecretKey() (SecretKey, error) {
	k, err := btcec.NewPrivateKey()
	if err != nil {
		return SecretKey{}, err
	}
	return SecretKey{k: k}, nil
}

// PublicKey derives the x-only public key.
func (sk SecretKey) PublicKey() identity.PublicKey {
	pk, err := identity.FromBytes(schnorr.SerializePubKey(sk.k.PubKey()))
	if err != nil {
		panic(err)
	}
	return pk
}

// Hex returns the 64-character lowercase hex form.
func (sk SecretKey) Hex() string {
	return hex.EncodeToString(sk.k.Serialize())
}

// Nsec returns the bech32 "nsec" form.
func (sk SecretKey) Nsec() string {
	s, err := identity.EncodeBech32("nsec", sk.k.Serialize())
	if err != nil {
		panic(err)
	}
	return s
}

func (sk SecretKey) sign(hash []byte) ([]byte, error) {
	sig, err := schnorr.Sign(sk.k, hash)
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}
