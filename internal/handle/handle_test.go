package handle

import "testing"

func TestArenaPushAndAt(t *testing.T) {
	a := NewArena[int]()
	h1 := a.Push(10)
	h2 := a.Push(20)

	if a.Len() != 2 {
		t.Fatalf("expected len 2, got %d", a.Len())
	}
	if *h1.Get() != 10 || *h2.Get() != 20 {
		t.Fatalf("unexpected values via handle Get")
	}
}

func TestHandleNextPrev(t *testing.T) {
	a := NewArena[string]()
	a.Push("a")
	a.Push("b")
	a.Push("c")

	h, ok := a.Last()
	if !ok || *h.Get() != "c" {
		t.Fatalf("expected last handle to point at c")
	}
	prev, ok := h.Prev()
	if !ok || *prev.Get() != "b" {
		t.Fatalf("expected Prev to step back to b")
	}
	next, ok := prev.Next()
	if !ok || *next.Get() != "c" {
		t.Fatalf("expected Next to step forward to c")
	}
}

func TestTruncateAfterIsIdempotent(t *testing.T) {
	a := NewArena[int]()
	for i := 0; i < 5; i++ {
		a.Push(i)
	}
	a.TruncateAfter(2)
	if a.Len() != 3 {
		t.Fatalf("expected len 3 after truncate, got %d", a.Len())
	}
	a.TruncateAfter(2)
	if a.Len() != 3 {
		t.Fatalf("truncate_after should be idempotent, got len %d", a.Len())
	}
}

func TestTruncateAfterEmpties(t *testing.T) {
	a := NewArena[int]()
	a.Push(1)
	a.Push(2)
	a.TruncateAfter(-1)
	if a.Len() != 0 {
		t.Fatalf("expected empty arena, got len %d", a.Len())
	}
}
