package arch

import (
	"log/slog"
	"sync/atomic"
)

// tickCounter is the monotonically increasing count of timer-interrupt
// arrivals (spec.md §4.B). It is incremented by DispatchTimerInterrupt
// before the registered callback runs, and read back under the
// interrupt-masking discipline TimerTicks implements directly: readers
// disable interrupts while copying so the value is atomic with respect to
// the handler even without a dedicated lock.
var tickCounter atomic.Uint64

// TimerTicks returns the current tick count, matching spec.md §4.B: the
// read temporarily disables interrupts (if they were enabled) so it cannot
// race a concurrent DispatchTimerInterrupt call.
func TimerTicks() uint64 {
	wasEnabled := InterruptsEnabled()
	if wasEnabled {
		DisableInterrupts()
	}
	value := tickCounter.Load()
	if wasEnabled {
		EnableInterrupts()
	}
	return value
}

// timerCallback and ipcCallback are single-slot registries for the timer
// and IPC vector handlers, modeled as spec.md §9 describes: a release-store
// on register, an acquire-load on dispatch, nil interpreted as "no handler".
var (
	timerCallback atomic.Pointer[func()]
	ipcCallback   atomic.Pointer[func()]
)

// RegisterTimerHandler installs the callback invoked after every timer
// tick. Passing nil clears the registration.
func RegisterTimerHandler(callback func()) {
	storeCallback(&timerCallback, callback)
}

// RegisterIPCHandler installs the callback invoked on every IPC trap.
func RegisterIPCHandler(callback func()) {
	storeCallback(&ipcCallback, callback)
}

func storeCallback(slot *atomic.Pointer[func()], callback func()) {
	if callback == nil {
		slot.Store(nil)
		return
	}
	slot.Store(&callback)
}

func loadCallback(slot *atomic.Pointer[func()]) func() {
	fn := slot.Load()
	if fn == nil {
		return nil
	}
	return *fn
}

// DispatchTimerInterrupt simulates the arrival of the periodic timer
// interrupt: increments the tick counter, then invokes the registered
// timer callback if any. A real build reaches this from the IDT's vector-32
// trampoline; the simulated boot harness (cmd/boot.go) calls it directly to
// dispatch a fixed number of ticks after boot completes.
func DispatchTimerInterrupt() {
	tickCounter.Add(1)
	if fn := loadCallback(&timerCallback); fn != nil {
		fn()
	}
}

// DispatchIPCInterrupt simulates the arrival of the DPL=3 IPC trap vector
// (0x80), invoking the registered IPC callback if any.
func DispatchIPCInterrupt() {
	if fn := loadCallback(&ipcCallback); fn != nil {
		fn()
	}
}

// GPFault captures the triple a #GP handler records: instruction pointer,
// code segment and hardware error code.
type GPFault struct {
	RIP  uint64
	CS   uint64
	Code uint64
}

var (
	gpFaultRIP   atomic.Uint64
	gpFaultCS    atomic.Uint64
	gpFaultCode  atomic.Uint64
	gpFaultValid atomic.Bool
)

// CaptureGPFault records a general-protection fault and halts, matching
// spec.md §4.B: the three cells are stored first and the valid flag is set
// last with release semantics so a concurrent TakeLastGPFault cannot observe a
// valid flag with stale cell contents. Before halting it writes the same
// diagnostic line to the serial console the original handler does
// (spec.md §62, §173): "general protection fault", then rip/cs/err in hex.
func CaptureGPFault(fault GPFault, logger *slog.Logger) {
	gpFaultRIP.Store(fault.RIP)
	gpFaultCS.Store(fault.CS)
	gpFaultCode.Store(fault.Code)
	gpFaultValid.Store(true)

	if logger != nil {
		logger.Error("general protection fault", "rip", fault.RIP, "cs", fault.CS, "err", fault.Code)
	}

	WriteSerialBytes([]byte("general protection fault\n  rip="))
	WriteSerialUint64Hex(fault.RIP)
	WriteSerialBytes([]byte("\n  cs="))
	WriteSerialUint64Hex(fault.CS)
	WriteSerialBytes([]byte("\n  err="))
	WriteSerialUint64Hex(fault.Code)
	WriteSerialBytes([]byte("\n"))

	Halt()
}

// TakeLastGPFault atomically consumes the captured fault (an acquire-release
// swap of the valid flag) and reports whether one was pending.
func TakeLastGPFault() (GPFault, bool) {
	if !gpFaultValid.Swap(false) {
		return GPFault{}, false
	}
	return GPFault{
		RIP:  gpFaultRIP.Load(),
		CS:   gpFaultCS.Load(),
		Code: gpFaultCode.Load(),
	}, true
}
