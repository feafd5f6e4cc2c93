package ipc

import (
	"bytes"
	"errors"
	"testing"

	"rustcore-go/kernelerrors"
)

type noopController struct{ enabled bool }

func (c *noopController) InterruptsEnabled() bool { return c.enabled }
func (c *noopController) DisableInterrupts()      { c.enabled = false }
func (c *noopController) EnableInterrupts()       { c.enabled = true }

func newTestChannel() *Channel {
	return NewChannel(&noopController{enabled: true})
}

func TestSendOversizedPayload(t *testing.T) {
	ch := newTestChannel()
	if err := ch.Send(make([]byte, MaxPayload+1)); !errors.Is(err, kernelerrors.ErrOversized) {
		t.Errorf("got %v, want ErrOversized", err)
	}
}

func TestReceiveOnEmptyChannel(t *testing.T) {
	ch := newTestChannel()
	buf := make([]byte, 16)
	if _, err := ch.Receive(buf); !errors.Is(err, kernelerrors.ErrEmpty) {
		t.Errorf("got %v, want ErrEmpty", err)
	}
}

func TestFIFOOrdering(t *testing.T) {
	ch := newTestChannel()
	payloads := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	for _, p := range payloads {
		if err := ch.Send(p); err != nil {
			t.Fatalf("Send(%q): %v", p, err)
		}
	}

	for _, want := range payloads {
		buf := make([]byte, MaxPayload)
		n, err := ch.Receive(buf)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if !bytes.Equal(buf[:n], want) {
			t.Errorf("Receive() = %q, want %q", buf[:n], want)
		}
	}
}

// TestChannelSaturation mirrors spec.md §8 scenario 5: 16 sends succeed,
// the 17th returns Full, and after one receive another send succeeds.
func TestChannelSaturation(t *testing.T) {
	ch := newTestChannel()
	for i := 0; i < MaxMessages; i++ {
		if err := ch.Send([]byte("a")); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	if err := ch.Send([]byte("a")); !errors.Is(err, kernelerrors.ErrFull) {
		t.Errorf("send %d: got %v, want ErrFull", MaxMessages+1, err)
	}

	buf := make([]byte, 16)
	if _, err := ch.Receive(buf); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if err := ch.Send([]byte("a")); err != nil {
		t.Errorf("send after one receive: %v", err)
	}
}

func TestReceiveTruncatesToBufferLength(t *testing.T) {
	ch := newTestChannel()
	if err := ch.Send([]byte("hello world")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 5)
	n, err := ch.Receive(buf)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if n != 5 || string(buf) != "hello" {
		t.Errorf("Receive() = %d, %q, want 5, %q", n, buf, "hello")
	}
}

func TestResetClearsChannel(t *testing.T) {
	ch := newTestChannel()
	_ = ch.Send([]byte("x"))
	ch.Reset()

	buf := make([]byte, 1)
	if _, err := ch.Receive(buf); !errors.Is(err, kernelerrors.ErrEmpty) {
		t.Errorf("got %v, want ErrEmpty after Reset", err)
	}
}

// TestNoStalePayloadBytes guards against a slot reused by a shorter
// message leaking a previous, longer message's tail bytes.
func TestNoStalePayloadBytes(t *testing.T) {
	ch := newTestChannel()
	if err := ch.Send([]byte("0123456789")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	buf := make([]byte, MaxPayload)
	if _, err := ch.Receive(buf); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if err := ch.Send([]byte("ab")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	n, err := ch.Receive(buf)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(buf[:n]) != "ab" {
		t.Errorf("Receive() = %q, want %q", buf[:n], "ab")
	}
}
