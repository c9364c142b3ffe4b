package nostr

import (
	"testing"

	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

const (
	refHex  = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"
	refNpub = "npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6"
)

func TestFindPubKeys(t *testing.T) {
	content := "hey nostr:" + refNpub + " how far from nostr:" + refNpub + "?"
	keys := FindPubKeys(content)
	if len(keys) != 2 {
		t.Fatalf("FindPubKeys returned %d keys, want 2", len(keys))
	}
	for _, k := range keys {
		if k.Hex() != refHex {
			t.Errorf("extracted %s, want %s", k.Hex(), refHex)
		}
	}
}

func TestFindPubKeysIgnoresJunk(t *testing.T) {
	cases := []string{
		"no mentions here",
		"bare " + refNpub + " without the uri scheme",
		"nostr:npub1qqqq",
	}
	for _, content := range cases {
		if keys := FindPubKeys(content); len(keys) != 0 {
			t.Errorf("FindPubKeys(%q) = %d keys, want 0", content, len(keys))
		}
	}
}

func TestMentionURIRoundTrip(t *testing.T) {
	pk, err := identity.Parse(refHex)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	keys := FindPubKeys("ping " + MentionURI(pk))
	if len(keys) != 1 || keys[0] != pk {
		t.Fatalf("MentionURI did not round trip through FindPubKeys")
	}
}

func TestReplyTagsTopLevel(t *testing.T) {
	parent := &Event{
		ID:     "eventid",
		PubKey: refHex,
		Kind:   KindTextNote,
	}
	tags := ReplyTags(parent)
	want := []Tag{
		{"e", "eventid", "", "root"},
		{"p", refHex},
	}
	assertTagsEqual(t, tags, want)
}

func TestReplyTagsWithinThread(t *testing.T) {
	other := "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	parent := &Event{
		ID:     "parentid",
		PubKey: refHex,
		Kind:   KindTextNote,
		Tags: []Tag{
			{"e", "rootid", "", "root"},
			{"e", "earlier", "", "reply"},
			{"p", other},
			{"p", refHex},
		},
	}
	tags := ReplyTags(parent)
	want := []Tag{
		{"e", "rootid", "", "root"},
		{"e", "parentid", "", "reply"},
		{"p", refHex},
		{"p", other},
	}
	assertTagsEqual(t, tags, want)
}

func TestReplyTagsReplyOnlyParent(t *testing.T) {
	parent := &Event{
		ID:     "parentid",
		PubKey: refHex,
		Kind:   KindTextNote,
		Tags: []Tag{
			{"e", "earlier", "", "reply"},
		},
	}
	tags := ReplyTags(parent)
	want := []Tag{
		{"e", "earlier", "", "root"},
		{"e", "parentid", "", "reply"},
		{"p", refHex},
	}
	assertTagsEqual(t, tags, want)
}

func assertTagsEqual(t *testing.T, got, want []Tag) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tags %v, want %d tags %v", len(got), got, len(want), want)
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("tag %d = %v, want %v", i, got[i], want[i])
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("tag %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
}
