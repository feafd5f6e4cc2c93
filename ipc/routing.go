package ipc

import (
	"sync"
	"sync/atomic"

	"rustcore-go/kernelerrors"
)

// RoutingTable directs channel traffic to the registered init endpoint and
// drops otherwise (spec.md §4.F). It also tracks whether a user-mode IPC
// trap arrived since the last check, without requiring the trap handler to
// do any real work.
type RoutingTable struct {
	mu             sync.Mutex
	initRegistered bool

	channel    *Channel
	ipcPending atomic.Bool
}

// NewRoutingTable returns a routing table over the given kernel channel,
// with no endpoint registered and no IPC pending.
func NewRoutingTable(channel *Channel) *RoutingTable {
	return &RoutingTable{channel: channel}
}

// RegisterInit marks the init service as subscribed to the bootstrap
// channel.
func (rt *RoutingTable) RegisterInit() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.initRegistered = true
}

// InitRegistered reports whether the init service has registered.
func (rt *RoutingTable) InitRegistered() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.initRegistered
}

// SendBootstrap delegates to the kernel channel's Send if init is
// registered; otherwise it returns ErrUnroutable without touching the
// channel.
func (rt *RoutingTable) SendBootstrap(payload []byte) error {
	if !rt.InitRegistered() {
		return kernelerrors.ErrUnroutable
	}
	return rt.channel.Send(payload)
}

// ReceiveBootstrap delegates directly to the kernel channel's Receive.
func (rt *RoutingTable) ReceiveBootstrap(buffer []byte) (int, error) {
	return rt.channel.Receive(buffer)
}

// OnIPCTrap records that a user-mode IPC interrupt arrived. It is the
// callback arch.RegisterIPCHandler installs; it does no work beyond the
// flag so it is safe to run at interrupt level.
func (rt *RoutingTable) OnIPCTrap() {
	rt.ipcPending.Store(true)
}

// TakeIPCPending atomically reads and clears the IPC-pending flag.
func (rt *RoutingTable) TakeIPCPending() bool {
	return rt.ipcPending.Swap(false)
}
