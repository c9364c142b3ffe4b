package nostr

import "testing"

func TestFilterMatches(t *testing.T) {
	since := Timestamp(100)
	until := Timestamp(200)
	ev := &Event{
		ID:        "id1",
		PubKey:    "author1",
		CreatedAt: 150,
		Kind:      KindContactList,
		Tags:      []Tag{{"p", "target1"}},
	}

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty matches everything", Filter{}, true},
		{"kind match", Filter{Kinds: []int{KindContactList}}, true},
		{"kind mismatch", Filter{Kinds: []int{KindProfile}}, false},
		{"author match", Filter{Authors: []string{"author1", "other"}}, true},
		{"author mismatch", Filter{Authors: []string{"other"}}, false},
		{"id match", Filter{IDs: []string{"id1"}}, true},
		{"id mismatch", Filter{IDs: []string{"id2"}}, false},
		{"p tag match", Filter{PTags: []string{"target1"}}, true},
		{"p tag mismatch", Filter{PTags: []string{"target2"}}, false},
		{"within window", Filter{Since: &since, Until: &until}, true},
		{"before since", Filter{Since: &until}, false},
		{"after until", Filter{Until: &since}, false},
		{"combined", Filter{Kinds: []int{KindContactList}, Authors: []string{"author1"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(ev); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}
