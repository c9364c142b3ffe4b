package identity

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// The npub/nsec encodings are plain bech32 (BIP-173) over the 32 raw key
// bytes; the btcutil codec handles the checksum and case rules.

// EncodeBech32 encodes raw bytes under the given human-readable prefix.
func EncodeBech32(hrp string, data []byte) (string, error) {
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("regrouping payload bits: %w", err)
	}
	return bech32.Encode(hrp, conv)
}

// DecodeBech32 decodes a bech32 string into its prefix and raw bytes.
func DecodeBech32(s string) (string, []byte, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", nil, err
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("regrouping payload bits: %w", err)
	}
	return hrp, raw, nil
}
