// Package ipc implements the bounded in-kernel message channel and the
// routing table that sits in front of it (spec.md §4.E, §4.F).
package ipc

import (
	"rustcore-go/kernelerrors"
	"rustcore-go/kernelsync"
)

// MaxMessages is the channel's fixed slot capacity.
const MaxMessages = 16

// MaxPayload is the largest payload a single message may carry.
const MaxPayload = 64

type message struct {
	len     int
	payload [MaxPayload]byte
}

func messageFromBytes(bytes []byte) (message, error) {
	if len(bytes) > MaxPayload {
		return message{}, kernelerrors.ErrOversized
	}
	var m message
	copy(m.payload[:], bytes)
	m.len = len(bytes)
	return m, nil
}

func (m *message) writeInto(buffer []byte) int {
	n := m.len
	if n > len(buffer) {
		n = len(buffer)
	}
	copy(buffer[:n], m.payload[:n])
	return n
}

type slot struct {
	message message
	used    bool
}

type ring struct {
	slots [MaxMessages]slot
	head  int
	tail  int
	len   int
}

func (r *ring) push(m message) error {
	if r.len == MaxMessages {
		return kernelerrors.ErrFull
	}
	r.slots[r.tail].message = m
	r.slots[r.tail].used = true
	r.tail = (r.tail + 1) % MaxMessages
	r.len++
	return nil
}

func (r *ring) pop(buffer []byte) (int, error) {
	if r.len == 0 {
		return 0, kernelerrors.ErrEmpty
	}
	s := &r.slots[r.head]
	r.head = (r.head + 1) % MaxMessages
	r.len--
	s.used = false
	return s.message.writeInto(buffer), nil
}

func (r *ring) reset() {
	r.head = 0
	r.tail = 0
	r.len = 0
	for i := range r.slots {
		r.slots[i].used = false
	}
}

// Channel is a fixed-capacity queue of fixed-size datagrams, safe for a
// producer at interrupt level to meet a consumer at task level (spec.md
// §4.E). All three operations acquire the channel's own interrupt-masking
// lock.
type Channel struct {
	lock *kernelsync.Lock[ring]
}

// NewChannel constructs an empty channel guarded by its own lock.
func NewChannel(ctrl kernelsync.InterruptController) *Channel {
	return &Channel{lock: kernelsync.New(ring{}, ctrl)}
}

// Send copies bytes into the tail slot. It fails with ErrOversized if bytes
// exceeds MaxPayload, or ErrFull if the channel is at capacity.
func (c *Channel) Send(bytes []byte) error {
	m, err := messageFromBytes(bytes)
	if err != nil {
		return err
	}
	return kernelsync.With(c.lock, func(r *ring) error {
		return r.push(m)
	})
}

// Receive copies the head message's payload (up to len(buffer) bytes) out
// of the channel and returns how many bytes were written. It fails with
// ErrEmpty if the channel holds no messages.
func (c *Channel) Receive(buffer []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	r := kernelsync.With(c.lock, func(rg *ring) result {
		n, err := rg.pop(buffer)
		return result{n: n, err: err}
	})
	return r.n, r.err
}

// Reset clears the channel back to empty.
func (c *Channel) Reset() {
	kernelsync.With(c.lock, func(r *ring) struct{} {
		r.reset()
		return struct{}{}
	})
}
