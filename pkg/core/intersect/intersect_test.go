package intersect

import (
	"testing"
)

func TestMapsExactIntersection(t *testing.T) {
	a := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}
	b := map[string]int{"b": 20, "d": 40, "e": 50}

	got := map[string][2]int{}
	for p := range Maps(a, b) {
		if _, dup := got[p.Key]; dup {
			t.Fatalf("duplicate key %q yielded", p.Key)
		}
		got[p.Key] = [2]int{p.First, p.Second}
	}

	want := map[string][2]int{"b": {2, 20}, "d": {4, 40}}
	if len(got) != len(want) {
		t.Fatalf("intersection size = %d, want %d (%v)", len(got), len(want), got)
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("key %q: got %v, want %v", k, got[k], w)
		}
	}
}

// The pairing order must hold even when the second map is the smaller one
// and therefore the one iterated internally.
func TestMapsPairingOrderWhenSwapped(t *testing.T) {
	small := map[string]int{"x": 1}
	big := map[string]int{"x": 100, "y": 2, "z": 3}

	for p := range Maps(big, small) {
		if p.First != 100 || p.Second != 1 {
			t.Errorf("pairing order broken: got (%d, %d), want (100, 1)", p.First, p.Second)
		}
	}
	for p := range Maps(small, big) {
		if p.First != 1 || p.Second != 100 {
			t.Errorf("pairing order broken: got (%d, %d), want (1, 100)", p.First, p.Second)
		}
	}
}

func TestMapsEmpty(t *testing.T) {
	full := map[int]string{1: "a"}
	for range Maps(map[int]string{}, full) {
		t.Fatal("intersection with empty map yielded items")
	}
	for range Maps(full, nil) {
		t.Fatal("intersection with nil map yielded items")
	}
}

func TestMapsRestartable(t *testing.T) {
	a := map[int]int{1: 1, 2: 2}
	b := map[int]int{2: 4, 3: 9}
	seq := Maps(a, b)

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 1 || second != 1 {
		t.Errorf("sequence not restartable: first pass %d items, second pass %d", first, second)
	}
}

func TestMapsEarlyStop(t *testing.T) {
	a := map[int]int{1: 1, 2: 2, 3: 3}
	seen := 0
	for range Maps(a, a) {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("early stop yielded %d items", seen)
	}
}

func TestCollect(t *testing.T) {
	a := map[string]string{"k": "va", "only": "x"}
	b := map[string]string{"k": "vb"}
	out := Collect(a, b)
	if len(out) != 1 {
		t.Fatalf("Collect size = %d, want 1", len(out))
	}
	p := out["k"]
	if p.First != "va" || p.Second != "vb" {
		t.Errorf("Collect pair = %+v", p)
	}
}
