package connector

import (
	"bytes"
	"testing"
)

func TestMatrixSetGet(t *testing.T) {
	m := NewMatrix(4, 100)
	m.Set(1, 2, 50)
	m.Set(3, 3, 1<<20)
	if got := m.TransitionCost(1, 2); got != 50 {
		t.Errorf("cost(1,2) = %d", got)
	}
	if got := m.TransitionCost(2, 1); got != 100 {
		t.Errorf("cost(2,1) = %d", got)
	}
	if got := m.TransitionCost(3, 3); got != 32767 {
		t.Errorf("cost should be clamped, got %d", got)
	}
	if got := m.TransitionCost(9, 0); got != InvalidCost {
		t.Errorf("out of range = %d", got)
	}
}

func TestEstimate(t *testing.T) {
	m := Estimate(3, map[[2]uint16]int{
		{1, 2}: 90,
		{1, 1}: 10,
	})
	if !(m.TransitionCost(1, 2) < m.TransitionCost(1, 1)) {
		t.Errorf("frequent pair should be cheaper: %d vs %d", m.TransitionCost(1, 2), m.TransitionCost(1, 1))
	}
	if !(m.TransitionCost(1, 1) < m.TransitionCost(1, 0)) {
		t.Errorf("seen pair should beat unseen pair")
	}
	if m.TransitionCost(0, 0) <= 0 {
		t.Errorf("unseen cost should be positive")
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	m := NewMatrix(3, 7)
	m.Set(2, 1, -40)
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := append([]byte(nil), buf.Bytes()...)
	got, err := ReadMatrix(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.TransitionCost(2, 1) != -40 || got.TransitionCost(0, 0) != 7 {
		t.Errorf("read back wrong costs")
	}
	fb, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	if fb.TransitionCost(2, 1) != -40 {
		t.Errorf("FromBytes cost = %d", fb.TransitionCost(2, 1))
	}
	if _, err := FromBytes(raw[:10]); err == nil {
		t.Errorf("expected truncation error")
	}
}
