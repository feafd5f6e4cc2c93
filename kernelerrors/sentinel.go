package kernelerrors

// Channel errors (spec.md §7 Channel.Send / Channel.Receive).
var (
	// ErrFull indicates the channel is already holding MAX_MESSAGES datagrams.
	ErrFull = &KernelError{Subsystem: "ipc", Kind: KindResource, Detail: "channel full"}

	// ErrOversized indicates a send payload exceeds MAX_PAYLOAD bytes.
	ErrOversized = &KernelError{Subsystem: "ipc", Kind: KindInvalidConfig, Detail: "payload oversized"}

	// ErrUnroutable indicates a send was attempted with no registered endpoint.
	ErrUnroutable = &KernelError{Subsystem: "ipc", Kind: KindInvalidState, Detail: "no registered endpoint"}

	// ErrEmpty indicates a receive was attempted on an empty channel.
	ErrEmpty = &KernelError{Subsystem: "ipc", Kind: KindInvalidState, Detail: "channel empty"}
)

// Allocator errors.
var (
	// ErrFramesExhausted indicates every tracked frame is reserved.
	ErrFramesExhausted = &KernelError{Subsystem: "memory", Kind: KindResource, Detail: "no free frames"}

	// ErrFrameNotAllocated indicates release was called on a free or
	// out-of-range frame (double free or bad index).
	ErrFrameNotAllocated = &KernelError{Subsystem: "memory", Kind: KindInvalidState, Detail: "frame not allocated"}
)

// Scheduler errors.
var (
	// ErrSchedulerFull indicates the run queue has no free slot.
	ErrSchedulerFull = &KernelError{Subsystem: "scheduler", Kind: KindResource, Detail: "run queue full"}
)

// Manifest errors (spec.md §4.H / §7).
var (
	// ErrMissingManifest indicates no services.manifest entry was found.
	ErrMissingManifest = &KernelError{Subsystem: "bootfs", Kind: KindNotFound, Detail: "missing services.manifest"}

	// ErrUtf8 indicates the manifest bytes are not valid UTF-8.
	ErrUtf8 = &KernelError{Subsystem: "bootfs", Kind: KindInvalidConfig, Detail: "manifest is not valid UTF-8"}

	// ErrInvalidFormat indicates a manifest line failed to parse.
	ErrInvalidFormat = &KernelError{Subsystem: "bootfs", Kind: KindInvalidConfig, Detail: "invalid manifest line"}

	// ErrMissingArtifact indicates a manifest line names an artifact with
	// no matching bootfs entry.
	ErrMissingArtifact = &KernelError{Subsystem: "bootfs", Kind: KindInvalidConfig, Detail: "missing artifact"}

	// ErrManifestEmpty indicates a manifest with zero valid service lines.
	ErrManifestEmpty = &KernelError{Subsystem: "bootfs", Kind: KindInvalidConfig, Detail: "manifest declares no services"}
)

// Handoff errors.
var (
	// ErrIncompatibleHandoff indicates the handoff record's version field
	// does not match the compiled constant or its flags field is non-zero.
	ErrIncompatibleHandoff = &KernelError{Subsystem: "boot", Kind: KindInvalidConfig, Detail: "incompatible handoff record"}
)
