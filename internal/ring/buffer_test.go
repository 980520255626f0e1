package ring

import "testing"

func TestBufferRoundTrip(t *testing.T) {
	b := New(3)
	values := []float64{10, 20, 30, 40, 50}
	for _, v := range values {
		b.Push(v)
	}
	// capacity 3, pushed 5 values -> holds {30, 40, 50}, newest last.
	cases := []struct {
		lag  int
		want float64
	}{
		{0, 50},
		{1, 40},
		{2, 30},
		{3, -1}, // beyond capacity -> default
	}
	for _, c := range cases {
		got := b.GetByLag(c.lag, -1)
		if got != c.want {
			t.Errorf("GetByLag(%d) = %v, want %v", c.lag, got, c.want)
		}
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
}

func TestBufferPartiallyFilled(t *testing.T) {
	b := New(5)
	b.Push(1)
	b.Push(2)
	if got := b.GetByLag(0, 0); got != 2 {
		t.Errorf("GetByLag(0) = %v, want 2", got)
	}
	if got := b.GetByLag(1, 0); got != 1 {
		t.Errorf("GetByLag(1) = %v, want 1", got)
	}
	if got := b.GetByLag(2, -9); got != -9 {
		t.Errorf("GetByLag(2) = %v, want default -9", got)
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
}

func TestBufferZeroCapacity(t *testing.T) {
	b := New(0)
	b.Push(1)
	b.Push(2)
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	if got := b.GetByLag(0, 7); got != 7 {
		t.Errorf("GetByLag(0) on empty buffer = %v, want default 7", got)
	}
}

func TestBufferNegativeLagPanics(t *testing.T) {
	b := New(2)
	b.Push(1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on negative lag")
		}
	}()
	b.GetByLag(-1, 0)
}

func TestNewNegativeCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on negative capacity")
		}
	}()
	New(-1)
}
