package memory

import (
	"errors"
	"testing"

	"rustcore-go/boot"
	"rustcore-go/kernelerrors"
)

type noopController struct{ enabled bool }

func (c *noopController) InterruptsEnabled() bool { return c.enabled }
func (c *noopController) DisableInterrupts()      { c.enabled = false }
func (c *noopController) EnableInterrupts()       { c.enabled = true }

func newTestAllocator() *FrameAllocator {
	return NewFrameAllocator(&noopController{enabled: true})
}

func TestInitWithNilBootInfoReservesOnlyBootFrames(t *testing.T) {
	fa := newTestAllocator()
	fa.Init(nil)

	if got := fa.ReservedFrames(); got != BootReservedFrames {
		t.Errorf("ReservedFrames() = %d, want %d", got, BootReservedFrames)
	}
}

func TestAllocateReleaseExclusivity(t *testing.T) {
	fa := newTestAllocator()
	fa.Init(nil)

	f, err := fa.AllocateFrame()
	if err != nil {
		t.Fatalf("AllocateFrame: %v", err)
	}

	// Allocating TotalFrames-BootReservedFrames-1 more frames must never
	// return f again: a frame handed out is exclusively owned until
	// released.
	seen := map[uint16]bool{f.Number(): true}
	for i := 0; i < TotalFrames-BootReservedFrames-1; i++ {
		next, err := fa.AllocateFrame()
		if err != nil {
			t.Fatalf("AllocateFrame #%d: %v", i, err)
		}
		if seen[next.Number()] {
			t.Fatalf("frame %d allocated twice while still held", next.Number())
		}
		seen[next.Number()] = true
	}

	if err := fa.ReleaseFrame(f); err != nil {
		t.Fatalf("ReleaseFrame: %v", err)
	}
}

func TestDoubleReleaseIsAnError(t *testing.T) {
	fa := newTestAllocator()
	fa.Init(nil)

	f, err := fa.AllocateFrame()
	if err != nil {
		t.Fatalf("AllocateFrame: %v", err)
	}
	if err := fa.ReleaseFrame(f); err != nil {
		t.Fatalf("first ReleaseFrame: %v", err)
	}
	if err := fa.ReleaseFrame(f); !errors.Is(err, kernelerrors.ErrFrameNotAllocated) {
		t.Errorf("second ReleaseFrame: got %v, want ErrFrameNotAllocated", err)
	}
}

func TestReleaseOutOfRangeFrame(t *testing.T) {
	fa := newTestAllocator()
	fa.Init(nil)

	bogus := Frame{number: TotalFrames + 1}
	if err := fa.ReleaseFrame(bogus); !errors.Is(err, kernelerrors.ErrFrameNotAllocated) {
		t.Errorf("got %v, want ErrFrameNotAllocated", err)
	}
}

// TestExhaustionScenario mirrors spec.md §8's frame exhaustion scenario:
// with BootReservedFrames already withheld, exactly
// TotalFrames-BootReservedFrames successive allocations should succeed and
// the next one should fail with ErrFramesExhausted.
func TestExhaustionScenario(t *testing.T) {
	fa := newTestAllocator()
	fa.Init(nil)

	want := TotalFrames - BootReservedFrames
	for i := 0; i < want; i++ {
		if _, err := fa.AllocateFrame(); err != nil {
			t.Fatalf("allocation %d/%d unexpectedly failed: %v", i+1, want, err)
		}
	}

	if _, err := fa.AllocateFrame(); !errors.Is(err, kernelerrors.ErrFramesExhausted) {
		t.Errorf("allocation %d: got %v, want ErrFramesExhausted", want+1, err)
	}
}

func TestApplyBootInfoMarksUsableRamFree(t *testing.T) {
	fa := newTestAllocator()
	info := &boot.Info{
		MemoryMap: []boot.MemoryRegion{
			{Base: 0, Length: TotalFrames * FrameSizeBytes, Kind: boot.UsableRam},
		},
	}
	fa.Init(info)

	// Everything is usable RAM except the always-reserved boot frames.
	if got := fa.ReservedFrames(); got != BootReservedFrames {
		t.Errorf("ReservedFrames() = %d, want %d", got, BootReservedFrames)
	}
}

func TestApplyBootInfoReservesNonUsableRegionsAndBootfs(t *testing.T) {
	fa := newTestAllocator()
	info := &boot.Info{
		MemoryMap: []boot.MemoryRegion{
			{Base: 0, Length: TotalFrames * FrameSizeBytes, Kind: boot.UsableRam},
			{Base: 10 * FrameSizeBytes, Length: 2 * FrameSizeBytes, Kind: boot.Reserved},
		},
		Bootfs: boot.PhysExtent{Base: 20 * FrameSizeBytes, Length: 3 * FrameSizeBytes},
	}
	fa.Init(info)

	// BootReservedFrames (low 4) + 2 reserved region frames + 3 bootfs
	// frames, with no overlap among them.
	want := BootReservedFrames + 2 + 3
	if got := fa.ReservedFrames(); got != want {
		t.Errorf("ReservedFrames() = %d, want %d", got, want)
	}
}

func TestFrameStartAddr(t *testing.T) {
	f := Frame{number: 5}
	if got, want := f.StartAddr(), uint64(5*FrameSizeBytes); got != want {
		t.Errorf("StartAddr() = %#x, want %#x", got, want)
	}
}

func TestFrameSize(t *testing.T) {
	if FrameSize() != FrameSizeBytes {
		t.Errorf("FrameSize() = %d, want %d", FrameSize(), FrameSizeBytes)
	}
}
