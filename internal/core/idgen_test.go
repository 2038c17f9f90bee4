package core

import "testing"

func TestIDGen_UniqueAndNonZero(t *testing.T) {
	g := NewSeededIDGen(42)
	seen := make(map[uint32]bool)
	for i := 0; i < 10000; i++ {
		id := g.Next()
		if id == 0 {
			t.Fatal("Next() returned 0")
		}
		if seen[id] {
			t.Fatalf("Next() returned duplicate id %d", id)
		}
		seen[id] = true
	}
	if g.Len() != 10000 {
		t.Errorf("Len() = %d, want 10000", g.Len())
	}
}

func TestIDGen_Release(t *testing.T) {
	g := NewIDGen()
	id := g.Next()
	if !g.InUse(id) {
		t.Fatalf("InUse(%d) = false after Next", id)
	}
	g.Release(id)
	if g.InUse(id) {
		t.Errorf("InUse(%d) = true after Release", id)
	}
}

func TestIDGen_SeededIsDeterministic(t *testing.T) {
	a, b := NewSeededIDGen(7), NewSeededIDGen(7)
	for i := 0; i < 5; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("step %d: %d != %d", i, x, y)
		}
	}
}
