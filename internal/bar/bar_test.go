package bar

import "testing"

func TestPushRejectsNonMonotoneTimestamp(t *testing.T) {
	a := NewArena(Config{})
	if _, err := a.Push(Bar{TimestampSec: 100, Open: 1, High: 1, Low: 1, Close: 1}); err != nil {
		t.Fatalf("unexpected error on first push: %v", err)
	}
	if _, err := a.Push(Bar{TimestampSec: 100, Open: 1, High: 1, Low: 1, Close: 1}); err == nil {
		t.Fatalf("expected KlTimeInconsistent on duplicate timestamp")
	}
}

func TestPushRejectsInvalidOHLC(t *testing.T) {
	a := NewArena(Config{})
	_, err := a.Push(Bar{TimestampSec: 1, Open: 5, High: 4, Low: 1, Close: 5})
	if err == nil {
		t.Fatalf("expected rejection: high below open")
	}
}

func TestPushAutoFixOHLC(t *testing.T) {
	a := NewArena(Config{AutoFixOHLC: true})
	b, err := a.Push(Bar{TimestampSec: 1, Open: 5, High: 4, Low: 1, Close: 5})
	if err != nil {
		t.Fatalf("unexpected error with AutoFixOHLC: %v", err)
	}
	if b.High < 5 {
		t.Fatalf("expected high to be tightened to at least 5, got %v", b.High)
	}
}

func TestHooksRunInOrder(t *testing.T) {
	var order []string
	h1 := hookFunc(func(prev, cur *Bar) { order = append(order, "h1") })
	h2 := hookFunc(func(prev, cur *Bar) { order = append(order, "h2") })
	a := NewArena(Config{}, h1, h2)
	if _, err := a.Push(Bar{TimestampSec: 1, Open: 1, High: 1, Low: 1, Close: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "h1" || order[1] != "h2" {
		t.Fatalf("expected hooks to run in registration order, got %v", order)
	}
}

func TestTruncateAfterIdempotent(t *testing.T) {
	a := NewArena(Config{})
	for i := int64(1); i <= 5; i++ {
		if _, err := a.Push(Bar{TimestampSec: i, Open: 1, High: 1, Low: 1, Close: 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	a.TruncateAfter(2)
	a.TruncateAfter(2)
	if a.Len() != 3 {
		t.Fatalf("expected len 3, got %d", a.Len())
	}
}

type hookFunc func(prev, cur *Bar)

func (f hookFunc) Update(prev, cur *Bar) { f(prev, cur) }
