// Package bootfs reads the read-only archive the loader stages for the
// init service (spec.md §4.H): the bootfs binary format, its manifest
// grammar, and the init bootstrap procedure that validates the manifest
// and waits for the kernel's first message.
package bootfs

import (
	"encoding/binary"
	"unicode/utf8"

	"rustcore-go/ipc"
)

const headerLen = 8

var magic = [4]byte{'R', 'C', 'F', 'S'}

const formatVersion uint16 = 1

// View is a borrowed, read-only view over a bootfs extent: an 8-byte
// header followed by name/data entries (spec.md §3).
type View struct {
	data []byte
}

// NewView wraps data as a bootfs view. An empty or nil data produces a
// view with no entries, matching Empty().
func NewView(data []byte) View {
	return View{data: data}
}

// Empty returns a view with no backing bytes.
func Empty() View {
	return View{}
}

// IsEmpty reports whether the view has no backing bytes.
func (v View) IsEmpty() bool {
	return len(v.data) == 0
}

// entry is one decoded bootfs entry: a name and its payload, both borrowed
// from the view's backing bytes.
type entry struct {
	name string
	data []byte
}

// iterator walks entries bounds-checking every offset against the view's
// extent, per spec.md §4.H and §8's bootfs-safety property: a corrupted
// entry (bad magic, truncated header, a length that would overrun the
// extent, non-UTF-8 name) ends iteration rather than reading past the
// extent or the remaining entry count.
type iterator struct {
	data      []byte
	offset    int
	remaining int
	ok        bool
}

func (v View) entries() iterator {
	if len(v.data) < headerLen {
		return iterator{}
	}
	if [4]byte(v.data[:4]) != magic {
		return iterator{}
	}
	version := binary.LittleEndian.Uint16(v.data[4:6])
	if version != formatVersion {
		return iterator{}
	}
	count := binary.LittleEndian.Uint16(v.data[6:8])
	return iterator{data: v.data, offset: headerLen, remaining: int(count), ok: true}
}

func (it *iterator) next() (entry, bool) {
	if !it.ok || it.remaining == 0 {
		return entry{}, false
	}

	if it.offset+2 > len(it.data) {
		it.remaining = 0
		return entry{}, false
	}
	nameLen := int(binary.LittleEndian.Uint16(it.data[it.offset : it.offset+2]))
	it.offset += 2

	if it.offset+nameLen > len(it.data) {
		it.remaining = 0
		return entry{}, false
	}
	nameBytes := it.data[it.offset : it.offset+nameLen]
	it.offset += nameLen

	if it.offset+4 > len(it.data) {
		it.remaining = 0
		return entry{}, false
	}
	size := int(binary.LittleEndian.Uint32(it.data[it.offset : it.offset+4]))
	it.offset += 4

	if size < 0 || it.offset+size > len(it.data) {
		it.remaining = 0
		return entry{}, false
	}
	payload := it.data[it.offset : it.offset+size]
	it.offset += size
	it.remaining--

	if !utf8.Valid(nameBytes) {
		return entry{}, false
	}

	return entry{name: string(nameBytes), data: payload}, true
}

// FindEntry returns the payload of the entry named name, scanning from the
// start of the view each time (bootfs archives are small and read-only, so
// there is no benefit to an index).
func (v View) FindEntry(name string) ([]byte, bool) {
	it := v.entries()
	for {
		e, ok := it.next()
		if !ok {
			return nil, false
		}
		if e.name == name {
			return e.data, true
		}
	}
}

// BootstrapOutcome is what Bootstrap records: the length of the one
// datagram received (or the receive error) and the manifest summary.
type BootstrapOutcome struct {
	LastMessageLen int
	ReceiveError   error
	Manifest       ManifestSummary
}

// Bootstrap runs the init service's startup procedure (spec.md §4.H):
// validate the manifest in view, then synchronously receive exactly one
// datagram from channel into a 16-byte buffer.
func Bootstrap(channel *ipc.Channel, view View) BootstrapOutcome {
	summary := view.ValidateManifest()

	buf := make([]byte, 16)
	n, err := channel.Receive(buf)
	return BootstrapOutcome{
		LastMessageLen: n,
		ReceiveError:   err,
		Manifest:       summary,
	}
}
