package nostr

import (
	"regexp"
	"strings"

	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

// npubPattern matches "nostr:npub1..." URIs in note content. The bech32
// charset excludes 1, b, i and o past the separator.
var npubPattern = regexp.MustCompile(`nostr:npub1[02-9ac-hj-np-z]+`)

// FindPubKeys extracts every identity mentioned as a nostr:npub URI in the
// content, in order of appearance. Strings that fail to decode are skipped.
func FindPubKeys(content string) []identity.PublicKey {
	var out []identity.PublicKey
	for _, match := range npubPattern.FindAllString(content, -1) {
		pk, err := identity.Parse(strings.TrimPrefix(match, "nostr:"))
		if err != nil {
			continue
		}
		out = append(out, pk)
	}
	return out
}

// MentionURI renders an identity as the nostr:npub form used in note
// content.
func MentionURI(pk identity.PublicKey) string {
	return "nostr:" + pk.Npub()
}

func isRootMarker(tag Tag) bool {
	return len(tag) >= 4 && tag[0] == "e" && tag[3] == "root"
}

func isReplyMarker(tag Tag) bool {
	return len(tag) >= 4 && tag[0] == "e" && tag[3] == "reply"
}

// ReplyTags builds the NIP-10 tag set for a reply to parent. Replying to a
// top-level note marks it as the thread root; replying within a thread
// carries the root tag forward and marks the parent as "reply". The
// parent's author and every identity it tagged stay tagged so the whole
// thread keeps being notified.
func ReplyTags(parent *Event) []Tag {
	var tags []Tag

	threaded := false
	for _, tag := range parent.Tags {
		if isRootMarker(tag) {
			tags = append(tags, tag)
			threaded = true
		}
	}
	// A parent with a "reply" marker but no "root" is part of a thread
	// whose root we cannot name; treat its reply target as the root.
	if !threaded {
		for _, tag := range parent.Tags {
			if isReplyMarker(tag) {
				tags = append(tags, Tag{"e", tag[1], "", "root"})
				threaded = true
			}
		}
	}

	if threaded {
		tags = append(tags, Tag{"e", parent.ID, "", "reply"})
	} else {
		tags = append(tags, Tag{"e", parent.ID, "", "root"})
	}

	tags = append(tags, Tag{"p", parent.PubKey})
	for _, tag := range parent.Tags {
		if len(tag) >= 2 && tag[0] == "p" && tag[1] != parent.PubKey {
			tags = append(tags, Tag{"p", tag[1]})
		}
	}
	return tags
}

// ContactTags renders a follow set as the "p" tags of a kind 3 contact
// list event.
func ContactTags(contacts []identity.PublicKey) []Tag {
	tags := make([]Tag, 0, len(contacts))
	for _, c := range contacts {
		tags = append(tags, Tag{"p", c.Hex()})
	}
	return tags
}
