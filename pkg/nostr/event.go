// Package nostr implements the slice of the Nostr protocol this project
// speaks: NIP-01 events, filters and the relay message flow, key handling
// with BIP-340 signatures, and the tag conventions used for mentions and
// replies.
//
// The package deliberately covers only event kinds 0 (profile), 1 (text
// note) and 3 (contact list); everything else on the wire is ignored.
package nostr

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

// Event kinds understood by this package.
const (
	KindProfile     = 0
	KindTextNote    = 1
	KindContactList = 3
)

// Timestamp is a unix-seconds event timestamp.
type Timestamp int64

// Now returns the current time as an event timestamp.
func Now() Timestamp { return Timestamp(time.Now().Unix()) }

// Time converts the timestamp to a time.Time.
func (t Timestamp) Time() time.Time { return time.Unix(int64(t), 0) }

// Tag is one event tag: a label followed by its values.
type Tag []string

// Event is a signed protocol event per NIP-01.
type Event struct {
	ID        string    `json:"id"`
	PubKey    string    `json:"pubkey"`
	CreatedAt Timestamp `json:"created_at"`
	Kind      int       `json:"kind"`
	Tags      []Tag     `json:"tags"`
	Content   string    `json:"content"`
	Sig       string    `json:"sig"`
}

// Serialize returns the canonical form the event ID is computed over:
// the JSON array [0, pubkey, created_at, kind, tags, content] without HTML
// escaping.
func (e *Event) Serialize() ([]byte, error) {
	tags := e.Tags
	if tags == nil {
		tags = []Tag{}
	}
	arr := []any{0, e.PubKey, e.CreatedAt, e.Kind, tags, e.Content}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(arr); err != nil {
		return nil, err
	}
	// Encoder appends a newline that is not part of the canonical form.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ComputeID returns the hex sha256 of the canonical serialization.
func (e *Event) ComputeID() (string, error) {
	ser, err := e.Serialize()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(ser)
	return hex.EncodeToString(sum[:]), nil
}

// Sign fills in PubKey, CreatedAt (when zero), ID and Sig using the given
// secret key.
func (e *Event) Sign(sk SecretKey) error {
	e.PubKey = sk.PublicKey().Hex()
	if e.CreatedAt == 0 {
		e.CreatedAt = Now()
	}
	if e.Tags == nil {
		e.Tags = []Tag{}
	}
	id, err := e.ComputeID()
	if err != nil {
		return err
	}
	e.ID = id

	sum, err := hex.DecodeString(id)
	if err != nil {
		return err
	}
	sig, err := sk.sign(sum)
	if err != nil {
		return fmt.Errorf("sign event: %w", err)
	}
	e.Sig = hex.EncodeToString(sig)
	return nil
}

// Verify checks that ID matches the content and that Sig is a valid
// signature by PubKey over it.
func (e *Event) Verify() (bool, error) {
	id, err := e.ComputeID()
	if err != nil {
		return false, err
	}
	if id != e.ID {
		return false, nil
	}

	pkRaw, err := hex.DecodeString(e.PubKey)
	if err != nil {
		return false, fmt.Errorf("decode pubkey: %w", err)
	}
	pub, err := schnorr.ParsePubKey(pkRaw)
	if err != nil {
		return false, fmt.Errorf("parse pubkey: %w", err)
	}
	sigRaw, err := hex.DecodeString(e.Sig)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	sig, err := schnorr.ParseSignature(sigRaw)
	if err != nil {
		return false, fmt.Errorf("parse signature: %w", err)
	}
	sum, err := hex.DecodeString(e.ID)
	if err != nil {
		return false, err
	}
	return sig.Verify(sum, pub), nil
}

// Author returns the event's author as an identity key.
func (e *Event) Author() (identity.PublicKey, error) {
	return identity.Parse(e.PubKey)
}

// PTags extracts the identities referenced by "p" tags, skipping malformed
// entries.
func (e *Event) PTags() []identity.PublicKey {
	var out []identity.PublicKey
	for _, tag := range e.Tags {
		if len(tag) < 2 || tag[0] != "p" {
			continue
		}
		pk, err := identity.Parse(tag[1])
		if err != nil {
			continue
		}
		out = append(out, pk)
	}
	return out
}
