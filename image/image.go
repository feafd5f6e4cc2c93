// Package image builds the bootfs archives and synthetic handoff records
// the CLI's build/inspect/boot commands consume, playing the role a real
// stage-0 loader and its build-time packer would play for this kernel
// (spec.md §3, §4.H, §6).
package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"rustcore-go/boot"
)

const headerLen = 8

var magic = [4]byte{'R', 'C', 'F', 'S'}

const formatVersion uint16 = 1

// Entry is one file to pack into a bootfs archive.
type Entry struct {
	Name string
	Data []byte
}

// Writer accumulates entries and serializes them to the RCFS wire format
// bootfs.View reads (spec.md §3). The zero value is ready to use.
type Writer struct {
	entries []Entry
}

// Add appends an entry. Entries are written in the order added; FindEntry
// on the reading side is a linear scan, so order does not affect lookups,
// only archive layout.
func (w *Writer) Add(name string, data []byte) {
	w.entries = append(w.entries, Entry{Name: name, Data: data})
}

// Build serializes the accumulated entries into a bootfs image. It returns
// an error only if an entry name is too long to encode its length in a
// uint16, an entry payload is too long to encode its length in a uint32,
// or too many entries were added to fit the uint16 header count.
func (w *Writer) Build() ([]byte, error) {
	if len(w.entries) > 0xFFFF {
		return nil, fmt.Errorf("image: %d entries exceeds header count field width", len(w.entries))
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	writeUint16(&buf, formatVersion)
	writeUint16(&buf, uint16(len(w.entries)))

	for _, e := range w.entries {
		nameBytes := []byte(e.Name)
		if len(nameBytes) > 0xFFFF {
			return nil, fmt.Errorf("image: entry name %q exceeds 65535 bytes", e.Name)
		}
		if len(e.Data) > 0xFFFFFFFF {
			return nil, fmt.Errorf("image: entry %q payload exceeds 4GiB", e.Name)
		}

		writeUint16(&buf, uint16(len(nameBytes)))
		buf.Write(nameBytes)
		writeUint32(&buf, uint32(len(e.Data)))
		buf.Write(e.Data)
	}

	return buf.Bytes(), nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// ServiceSpec is one line of a manifest the CLI's build command assembles
// from --service flags, matching the grammar bootfs.ValidateManifest
// parses: service:<name>:<artifact>:<entry>[:<cap1,cap2,...>].
type ServiceSpec struct {
	Name         string
	Artifact     string
	Entry        string
	Capabilities []string
}

// BuildManifest renders specs into the services.manifest text bootfs
// expects. Specs are emitted in the order given; callers that want
// deterministic output across runs should sort beforehand (the CLI sorts
// by service name).
func BuildManifest(specs []ServiceSpec) []byte {
	var sb strings.Builder
	for _, s := range specs {
		sb.WriteString("service:")
		sb.WriteString(s.Name)
		sb.WriteByte(':')
		sb.WriteString(s.Artifact)
		sb.WriteByte(':')
		sb.WriteString(s.Entry)
		if len(s.Capabilities) > 0 {
			sb.WriteByte(':')
			sb.WriteString(strings.Join(s.Capabilities, ","))
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// SortServiceSpecs orders specs by name, for manifests whose byte-for-byte
// output should not depend on flag order.
func SortServiceSpecs(specs []ServiceSpec) {
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
}

// SyntheticMemoryMap returns a minimal, plausible firmware memory map for
// the host-process boot harness: one usable RAM region sized to cover
// rustcore-go/memory's frame count, matching spec.md §4.D's expectation
// that the kernel's own usable range is reported as UsableRam.
func SyntheticMemoryMap(usableBytes uint64) []boot.MemoryRegion {
	return []boot.MemoryRegion{
		{Base: 0x0, Length: usableBytes, Kind: boot.UsableRam},
	}
}

// SyntheticHandoff builds an Info suitable for driving kernel.New/Boot from
// the CLI, given the memory map it should report and the length of an
// already-built bootfs image. The bootfs extent's base is fixed at
// 0x100000 and only describes where the bytes would live; the CLI resolves
// them out of band (this repository has no physical memory for a real
// pointer to refer to); kernel.Kernel.WithBootfsBytes is
// how a caller actually attaches the bytes once decoded.
func SyntheticHandoff(regions []boot.MemoryRegion, bootfsLength uint64) *boot.Info {
	return &boot.Info{
		Version:   boot.Version,
		Flags:     0,
		MemoryMap: regions,
		Bootfs:    boot.PhysExtent{Base: 0x10_0000, Length: bootfsLength},
	}
}
