package kernel

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"rustcore-go/arch"
	"rustcore-go/boot"
	"rustcore-go/image"
	"rustcore-go/kernelerrors"
	"rustcore-go/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func buildImageBytes(t *testing.T, specs []image.ServiceSpec, artifacts map[string][]byte) []byte {
	t.Helper()
	var w image.Writer
	w.Add("services.manifest", image.BuildManifest(specs))
	for name, data := range artifacts {
		w.Add(name, data)
	}
	data, err := w.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return data
}

// TestHappyPathBoot mirrors spec.md §8 scenario 1: a well-formed manifest,
// the kernel sends BOOT, and init acknowledges with INIT:READY.
func TestHappyPathBoot(t *testing.T) {
	arch.ResetSerialOutput()

	k := New(discardLogger(), nil)
	k.WithBootfsBytes(buildImageBytes(t,
		[]image.ServiceSpec{{Name: "foo", Artifact: "foo.bin", Entry: "main"}},
		map[string][]byte{"foo.bin": {1}},
	))

	outcome := k.Boot()

	if outcome.SendBootstrapErr != nil {
		t.Fatalf("unexpected send error: %v", outcome.SendBootstrapErr)
	}
	if outcome.InitReceiveErr != nil {
		t.Fatalf("unexpected init receive error: %v", outcome.InitReceiveErr)
	}
	if outcome.ReceivedLen != len(BootstrapMessage) {
		t.Errorf("ReceivedLen = %d, want %d", outcome.ReceivedLen, len(BootstrapMessage))
	}
	if outcome.Manifest.Error != nil {
		t.Errorf("unexpected manifest error: %v", outcome.Manifest.Error)
	}
	if outcome.Manifest.ServiceCount != 1 {
		t.Errorf("ServiceCount = %d, want 1", outcome.Manifest.ServiceCount)
	}

	buf := make([]byte, 16)
	n, err := k.Channel.Receive(buf)
	if err != nil {
		t.Fatalf("expected a queued INIT:READY reply, got err: %v", err)
	}
	if string(buf[:n]) != string(ReadyMessage) {
		t.Errorf("reply = %q, want %q", buf[:n], ReadyMessage)
	}
}

func TestBootWithMissingManifestStillRunsInitTask(t *testing.T) {
	arch.ResetSerialOutput()

	k := New(discardLogger(), nil)
	var w image.Writer
	w.Add("foo.bin", []byte{1})
	data, err := w.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	k.WithBootfsBytes(data)

	outcome := k.Boot()

	if !errors.Is(outcome.Manifest.Error, kernelerrors.ErrMissingManifest) {
		t.Errorf("got %v, want ErrMissingManifest", outcome.Manifest.Error)
	}
	if outcome.SendBootstrapErr != nil {
		t.Errorf("unexpected send error: %v", outcome.SendBootstrapErr)
	}
}

func TestBootSeedsFrameAllocatorFromHandoff(t *testing.T) {
	arch.ResetSerialOutput()

	regions := image.SyntheticMemoryMap(uint64(memory.TotalFrames * memory.FrameSizeBytes))
	info := image.SyntheticHandoff(regions, 0)

	k := New(discardLogger(), info)
	k.WithBootfsBytes(buildImageBytes(t, nil, nil))
	k.Boot()

	if got := k.Memory.ReservedFrames(); got != memory.BootReservedFrames {
		t.Errorf("ReservedFrames = %d, want %d", got, memory.BootReservedFrames)
	}
}

func TestBootWithEmptyBootfsView(t *testing.T) {
	arch.ResetSerialOutput()

	k := New(discardLogger(), nil)
	if !k.BootfsView.IsEmpty() {
		t.Fatal("expected an empty bootfs view with no handoff bootfs extent")
	}

	outcome := k.Boot()
	if !errors.Is(outcome.Manifest.Error, kernelerrors.ErrMissingManifest) {
		t.Errorf("got %v, want ErrMissingManifest", outcome.Manifest.Error)
	}
}

// TestNewWithNilLoggerWritesToSerialConsole confirms New falls back to a
// kernellog.ConsoleWriter-backed logger so early boot tracing reaches the
// serial console even with no hosted harness installed yet.
func TestNewWithNilLoggerWritesToSerialConsole(t *testing.T) {
	arch.ResetSerialOutput()

	k := New(nil, nil)
	k.WithBootfsBytes(buildImageBytes(t, nil, nil))
	k.Boot()

	if got := string(arch.SerialOutput()); !strings.Contains(got, "memory initialized") {
		t.Errorf("SerialOutput() = %q, want it to contain logger output routed through ConsoleWriter", got)
	}
}

// TestBootWithIncompatibleHandoffWritesSerialDiagnosticAndHalts mirrors
// spec.md §8's "incompatible version ⇒ fatal halt with diagnostic" scenario.
func TestBootWithIncompatibleHandoffWritesSerialDiagnosticAndHalts(t *testing.T) {
	arch.ResetSerialOutput()
	haltsBefore := arch.HaltCount()

	info := &boot.Info{Version: boot.Version + 1}
	k := New(discardLogger(), info)

	outcome := k.Boot()

	if !errors.Is(outcome.SendBootstrapErr, kernelerrors.ErrIncompatibleHandoff) {
		t.Errorf("got %v, want ErrIncompatibleHandoff", outcome.SendBootstrapErr)
	}
	if arch.HaltCount() != haltsBefore+1 {
		t.Error("expected an incompatible handoff to halt the CPU")
	}
	if got := string(arch.SerialOutput()); !strings.Contains(got, "handoff: incompatible version") {
		t.Errorf("SerialOutput() = %q, want it to contain the incompatible-handoff diagnostic", got)
	}
}
