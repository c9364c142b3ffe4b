package identity

import (
	"errors"
	"strings"
	"testing"
)

// Reference pair from the NIP-19 specification examples.
const (
	refHex  = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"
	refNpub = "npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6"
)

func TestParseHex(t *testing.T) {
	pk, err := Parse(refHex)
	if err != nil {
		t.Fatalf("Parse(hex) failed: %v", err)
	}
	if pk.Hex() != refHex {
		t.Errorf("Hex round trip mismatch: got %s", pk.Hex())
	}
	if pk.Npub() != refNpub {
		t.Errorf("Npub encoding mismatch: got %s, want %s", pk.Npub(), refNpub)
	}
}

func TestParseNpub(t *testing.T) {
	pk, err := Parse(refNpub)
	if err != nil {
		t.Fatalf("Parse(npub) failed: %v", err)
	}
	if pk.Hex() != refHex {
		t.Errorf("decoded key mismatch: got %s, want %s", pk.Hex(), refHex)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short hex", "abcdef"},
		{"non hex", strings.Repeat("z", 64)},
		{"wrong prefix", "nsec1vl029mgpspedva04g90vltkh6fvh240zqtv9k0t9af8935ke9laqsnlfe5"},
		{"bad checksum", refNpub[:len(refNpub)-1] + "7"},
		{"mixed case", "NPub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tc.input)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("Parse(%q) returned %T, want *ParseError", tc.input, err)
			}
		})
	}
}

func TestFromBytesLength(t *testing.T) {
	if _, err := FromBytes(make([]byte, 31)); err == nil {
		t.Error("FromBytes accepted 31 bytes")
	}
	if _, err := FromBytes(make([]byte, 32)); err != nil {
		t.Errorf("FromBytes rejected 32 bytes: %v", err)
	}
}

func TestBech32RoundTrip(t *testing.T) {
	for _, hrp := range []string{"npub", "nsec"} {
		data := make([]byte, Size)
		for i := range data {
			data[i] = byte(i * 7)
		}
		enc, err := EncodeBech32(hrp, data)
		if err != nil {
			t.Fatalf("EncodeBech32 failed: %v", err)
		}
		gotHRP, gotData, err := DecodeBech32(enc)
		if err != nil {
			t.Fatalf("DecodeBech32(%s) failed: %v", enc, err)
		}
		if gotHRP != hrp {
			t.Errorf("hrp mismatch: got %s, want %s", gotHRP, hrp)
		}
		if string(gotData) != string(data) {
			t.Errorf("payload mismatch after round trip")
		}
	}
}
