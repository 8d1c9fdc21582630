package arena

import "testing"

type node struct {
	id int
}

func TestAllocZeroed(t *testing.T) {
	p := NewPool[node]()
	n := p.Alloc()
	if n == nil || n.id != 0 {
		t.Fatalf("Alloc should return a zeroed slot, got %+v", n)
	}
}

func TestPointersStayValidAcrossSlabs(t *testing.T) {
	p := NewPool[node]()
	var ptrs []*node
	for i := 0; i < slabSize*3+5; i++ {
		n := p.Alloc()
		n.id = i
		ptrs = append(ptrs, n)
	}
	for i, n := range ptrs {
		if n.id != i {
			t.Fatalf("slot %d clobbered: got %d", i, n.id)
		}
	}
	if p.Live() != slabSize*3+5 {
		t.Fatalf("Live: expected %d, got %d", slabSize*3+5, p.Live())
	}
}

func TestFreeAndReset(t *testing.T) {
	p := NewPool[node]()
	a := p.Alloc()
	p.Alloc()
	p.Free(a)
	if p.Live() != 1 {
		t.Fatalf("Live after Free: expected 1, got %d", p.Live())
	}
	p.Reset()
	if p.Live() != 0 {
		t.Fatalf("Live after Reset: expected 0, got %d", p.Live())
	}
	// The pool is reusable after a bulk release.
	if n := p.Alloc(); n == nil {
		t.Fatal("Alloc after Reset returned nil")
	}
}
