// Package kernel wires the subsystems in arch, memory, ipc, scheduler and
// bootfs together into the boot→init handshake spec.md §2 describes:
//
//	loader prepares (A) → kernel calls B→D→F→G → enables interrupts →
//	registers init endpoint, enqueues init task, sends BOOT → scheduler
//	drains queue, running init task which validates bootfs (H) and
//	receives the queued message → kernel waits on timer ticks → halts.
//
// A real kernel enters this from its freestanding entry point with
// interrupts off and a handoff record in hand. This package's Boot gives a
// hosted Go process — a test binary, or the CLI's boot command — the same
// control flow to drive and assert against, using arch's simulated
// privileged primitives in place of real hardware.
package kernel

import (
	"log/slog"

	"rustcore-go/arch"
	"rustcore-go/bootfs"
	"rustcore-go/boot"
	"rustcore-go/ipc"
	"rustcore-go/kernelerrors"
	"rustcore-go/kernellog"
	"rustcore-go/memory"
	"rustcore-go/scheduler"
)

// BootstrapMessage is the datagram the kernel sends to wake the init task,
// matching spec.md §8 scenario 1.
var BootstrapMessage = []byte("BOOT")

// ReadyMessage is what a well-behaved init task replies with once its
// bootstrap procedure succeeds.
var ReadyMessage = []byte("INIT:READY")

// Kernel holds the process-wide state spec.md §6 lists: the frame
// allocator, kernel channel, routing table and scheduler, plus the decoded
// handoff record they were seeded from.
type Kernel struct {
	Logger     *slog.Logger
	Controller *arch.Controller
	Info       *boot.Info

	Memory     *memory.FrameAllocator
	Channel    *ipc.Channel
	Routing    *ipc.RoutingTable
	Scheduler  *scheduler.Scheduler
	BootfsView bootfs.View
}

// Outcome records what happened during a Boot call, for the CLI and tests
// to report on.
type Outcome struct {
	InitTaskID       scheduler.TaskID
	SendBootstrapErr error
	Manifest         bootfs.ManifestSummary
	ReceivedLen      int
	ReceivedPayload  []byte
	InitReceiveErr   error
	ReadyReply       []byte
	ReadyReplyLen    int
	ReadyReceiveErr  error
}

// New constructs kernel-wide state from a decoded handoff record. info may
// be nil, matching memory.FrameAllocator.Init's no-bootloader fallback. A nil logger means no hosted harness has taken over yet, so New
// points the default logger at the serial console itself via
// kernellog.ConsoleWriter, the same destination Boot's fatal paths write
// their diagnostics to.
func New(logger *slog.Logger, info *boot.Info) *Kernel {
	if logger == nil {
		logger = kernellog.NewLogger(kernellog.Config{
			Output: kernellog.ConsoleWriter{},
			Level:  slog.LevelInfo,
		})
	}

	ctrl := arch.NewController()

	k := &Kernel{
		Logger:     logger,
		Controller: ctrl,
		Info:       info,
		Memory:     memory.NewFrameAllocator(ctrl),
		Scheduler:  scheduler.NewScheduler(ctrl),
	}
	k.Channel = ipc.NewChannel(ctrl)
	k.Routing = ipc.NewRoutingTable(k.Channel)

	if info != nil && info.HasBootfs() {
		k.BootfsView = bootfs.NewView(syntheticBootfsBytes(info))
	} else {
		k.BootfsView = bootfs.Empty()
	}

	return k
}

// syntheticBootfsBytes is a placeholder seam: a real kernel would resolve
// info.Bootfs (a physical extent) against identity-mapped memory. This
// package never holds that mapping; callers that already have the bytes
// (an image.Writer output file read back by cmd/boot.go) attach them with
// WithBootfsBytes instead of relying on this.
func syntheticBootfsBytes(info *boot.Info) []byte {
	return nil
}

// WithBootfsBytes overrides the bootfs view with already-resolved bytes,
// used by the CLI once it has read an image file directly instead of
// dereferencing a physical address.
func (k *Kernel) WithBootfsBytes(data []byte) {
	k.BootfsView = bootfs.NewView(data)
}

// Boot runs the control flow spec.md §2 describes up to the point where the
// scheduler has drained its queue, using logger to trace each stage the way
// arch.Init traces CPU bring-up. It does not wait on timer ticks or halt
// afterwards; cmd/boot.go dispatches the ticks and halts once Boot returns.
func (k *Kernel) Boot() Outcome {
	if !k.Info.IsCompatible() && k.Info != nil {
		k.Logger.Error("incompatible handoff record", "version", k.Info.Version, "flags", k.Info.Flags)

		arch.WriteSerialBytes([]byte("handoff: incompatible version\n  version="))
		arch.WriteSerialUint64Hex(uint64(k.Info.Version))
		arch.WriteSerialBytes([]byte("\n  flags="))
		arch.WriteSerialUint64Hex(uint64(k.Info.Flags))
		arch.WriteSerialBytes([]byte("\n"))

		arch.Halt()
		return Outcome{SendBootstrapErr: kernelerrors.ErrIncompatibleHandoff}
	}

	arch.Init(k.Logger)
	k.Memory.Init(k.Info)
	k.Logger.Info("memory initialized", "reserved_frames", k.Memory.ReservedFrames())

	arch.RegisterIPCHandler(k.Routing.OnIPCTrap)
	arch.StartTimer(100)

	var outcome Outcome
	initTaskID, err := k.Scheduler.Register(func() {
		k.runInitTask(&outcome)
	})
	if err != nil {
		k.Logger.Error("failed to register init task", "err", err)
		return Outcome{SendBootstrapErr: err}
	}
	outcome.InitTaskID = initTaskID

	arch.EnableInterrupts()
	k.Logger.Info("interrupts enabled")

	k.Routing.RegisterInit()
	outcome.SendBootstrapErr = k.Routing.SendBootstrap(BootstrapMessage)
	if outcome.SendBootstrapErr != nil {
		k.Logger.Error("send bootstrap failed", "err", outcome.SendBootstrapErr)
	}

	k.Scheduler.Run()

	return outcome
}

// runInitTask is the init service's entry point, registered with the
// scheduler exactly once during Boot. It implements spec.md §4.H: validate
// the manifest, then synchronously receive one datagram.
func (k *Kernel) runInitTask(outcome *Outcome) {
	result := bootfs.Bootstrap(k.Channel, k.BootfsView)
	outcome.Manifest = result.Manifest
	outcome.ReceivedLen = result.LastMessageLen
	outcome.InitReceiveErr = result.ReceiveError

	if result.ReceiveError != nil {
		k.Logger.Error("init bootstrap receive failed", "err", result.ReceiveError)
		return
	}

	if err := k.Routing.SendBootstrap(ReadyMessage); err != nil {
		k.Logger.Warn("init could not announce readiness", "err", err)
	}
}
