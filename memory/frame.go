// Package memory implements the physical frame allocator described in
// spec.md §4.D: a fixed-size map of fixed-size frames, seeded from the
// firmware memory map carried in the boot handoff record.
package memory

import (
	"rustcore-go/boot"
	"rustcore-go/kernelerrors"
	"rustcore-go/kernelsync"
)

// FrameSizeBytes is the size of a single physical frame.
const FrameSizeBytes = 4096

// TotalFrames is the number of frames tracked by the allocator. This bounds
// the allocator to a 512 KiB physical window; spec.md §4.D treats this as a
// fixed constant rather than something sized at runtime.
const TotalFrames = 128

// BootReservedFrames is the number of low frames always reserved for the
// kernel image and boot structures, regardless of what the firmware memory
// map reports.
const BootReservedFrames = 4

// Frame identifies one physical frame by index.
type Frame struct {
	number uint16
}

// Number returns the frame's index into the allocator's map.
func (f Frame) Number() uint16 { return f.number }

// StartAddr returns the physical byte address of the start of the frame.
func (f Frame) StartAddr() uint64 {
	return uint64(f.number) * FrameSizeBytes
}

type frameState uint8

const (
	stateFree frameState = iota
	stateReserved
)

// Allocator is a fixed-size physical frame allocator. The zero value has
// every frame free and is what NewAllocator returns.
type Allocator struct {
	frameMap       [TotalFrames]frameState
	nextSearchIdx  int
}

// NewAllocator returns an allocator with every frame marked free. Callers
// normally follow this with Init to apply a firmware memory map.
func NewAllocator() *Allocator {
	return &Allocator{}
}

func (a *Allocator) reset(state frameState) {
	for i := range a.frameMap {
		a.frameMap[i] = state
	}
	a.nextSearchIdx = 0
}

func (a *Allocator) reserveRange(start, length int) {
	a.markRange(start, start+length, stateReserved)
}

func (a *Allocator) markRange(start, end int, state frameState) {
	if end > TotalFrames {
		end = TotalFrames
	}
	if start > TotalFrames {
		start = TotalFrames
	}
	for idx := start; idx < end; idx++ {
		a.frameMap[idx] = state
	}
}

func (a *Allocator) markPhysRange(base, length uint64, state frameState) {
	if length == 0 {
		return
	}
	startFrame := int(base / FrameSizeBytes)
	endFrame := int((base+length-1)/FrameSizeBytes) + 1
	a.markRange(startFrame, endFrame, state)
}

// applyBootInfo seeds the frame map from a decoded handoff record, mirroring
// the kernel's original bring-up: usable RAM regions are marked free,
// everything else (including any frames no region covers) is reserved,
// and the bootfs extent and low BootReservedFrames frames are always
// reserved regardless of what the firmware reported. A nil info or an
// empty memory map leaves every frame free except the low
// BootReservedFrames.
func (a *Allocator) applyBootInfo(info *boot.Info) {
	if info == nil || len(info.MemoryMap) == 0 {
		a.reset(stateFree)
		a.reserveRange(0, BootReservedFrames)
		return
	}

	a.reset(stateReserved)

	for _, region := range info.MemoryMap {
		if region.Kind == boot.UsableRam {
			a.markPhysRange(region.Base, region.Length, stateFree)
		} else {
			a.markPhysRange(region.Base, region.Length, stateReserved)
		}
	}

	if info.HasBootfs() {
		a.markPhysRange(info.Bootfs.Base, info.Bootfs.Length, stateReserved)
	}

	a.reserveRange(0, BootReservedFrames)

	a.nextSearchIdx = 0
	for idx, state := range a.frameMap {
		if state == stateFree {
			a.nextSearchIdx = idx
			break
		}
	}
}

// allocateFrame finds the next free frame starting the circular search at
// nextSearchIdx, reserves it, and returns it.
func (a *Allocator) allocateFrame() (Frame, error) {
	for offset := 0; offset < TotalFrames; offset++ {
		idx := (a.nextSearchIdx + offset) % TotalFrames
		if a.frameMap[idx] == stateFree {
			a.frameMap[idx] = stateReserved
			a.nextSearchIdx = (idx + 1) % TotalFrames
			return Frame{number: uint16(idx)}, nil
		}
	}
	return Frame{}, kernelerrors.ErrFramesExhausted
}

// releaseFrame returns a reserved frame to the free pool. Releasing a frame
// that is already free, or out of range, is an error: it almost always
// indicates a double-free in the caller.
func (a *Allocator) releaseFrame(f Frame) error {
	idx := int(f.number)
	if idx >= TotalFrames {
		return kernelerrors.ErrFrameNotAllocated
	}
	if a.frameMap[idx] == stateFree {
		return kernelerrors.ErrFrameNotAllocated
	}
	a.frameMap[idx] = stateFree
	return nil
}

func (a *Allocator) reservedFrames() int {
	count := 0
	for _, state := range a.frameMap {
		if state == stateReserved {
			count++
		}
	}
	return count
}

// FrameAllocator wraps Allocator in the kernel's interrupt-masking lock, the
// same way every other piece of mutable kernel-global state is guarded
// (spec.md §4.C). Interrupt handlers never allocate frames in this kernel,
// but the lock is cheap and keeps this type uniform with ipc.Channel and
// scheduler.Scheduler.
type FrameAllocator struct {
	lock *kernelsync.Lock[Allocator]
}

// NewFrameAllocator constructs a FrameAllocator with every frame free.
func NewFrameAllocator(ctrl kernelsync.InterruptController) *FrameAllocator {
	return &FrameAllocator{lock: kernelsync.New(*NewAllocator(), ctrl)}
}

// Init seeds the allocator from a decoded boot handoff record. A nil info
// falls back to an all-free map with only the low boot-reserved frames
// withheld, matching the original kernel's no-bootloader debug path.
func (fa *FrameAllocator) Init(info *boot.Info) {
	kernelsync.With(fa.lock, func(a *Allocator) struct{} {
		a.applyBootInfo(info)
		return struct{}{}
	})
}

// AllocateFrame reserves and returns the next free frame, or
// kernelerrors.ErrFramesExhausted if none remain.
func (fa *FrameAllocator) AllocateFrame() (Frame, error) {
	type result struct {
		frame Frame
		err   error
	}
	r := kernelsync.With(fa.lock, func(a *Allocator) result {
		f, err := a.allocateFrame()
		return result{frame: f, err: err}
	})
	return r.frame, r.err
}

// ReleaseFrame returns a previously allocated frame to the free pool.
func (fa *FrameAllocator) ReleaseFrame(f Frame) error {
	return kernelsync.With(fa.lock, func(a *Allocator) error {
		return a.releaseFrame(f)
	})
}

// ReservedFrames returns the number of frames currently marked reserved.
func (fa *FrameAllocator) ReservedFrames() int {
	return kernelsync.With(fa.lock, func(a *Allocator) int {
		return a.reservedFrames()
	})
}

// FrameSize exposes the frame size to callers that need to compute
// addresses from a Frame.
func FrameSize() int { return FrameSizeBytes }
