package driver

import "testing"

func TestBufferManagerReusesReleasedHandles(t *testing.T) {
	bm := NewBufferManager()

	h1 := bm.Host(16)
	if len(h1.Data) != 16 {
		t.Fatalf("len(h1.Data) = %d, want 16", len(h1.Data))
	}
	h1.Data[0] = 42
	backing := &h1.Data[0]
	h1.Release()

	h2 := bm.Host(16)
	if &h2.Data[0] != backing {
		t.Errorf("expected Host(16) to reuse the released buffer's backing array")
	}
}

func TestBufferManagerKindsAreIndependent(t *testing.T) {
	bm := NewBufferManager()

	h := bm.Pinned(8)
	h.Release()

	// A device request of the same size must not be satisfied by the
	// pinned pool's freed buffer.
	d := bm.Device(8)
	if len(d.Data) != 8 {
		t.Fatalf("len(d.Data) = %d, want 8", len(d.Data))
	}
}

func TestHandleReleaseNilIsSafe(t *testing.T) {
	var h *Handle
	h.Release() // must not panic
}
