// Package boot models the bootloader-to-kernel handoff record: the
// versioned structure a stage-0 loader populates in loader-owned memory
// before transferring control to the kernel entry point.
//
// The wire layout is fixed by the external interface in spec.md §6 and is
// packed, little-endian, and owned by the loader for the life of the
// kernel process; the kernel only ever borrows it read-only. Info is the
// in-process, already-decoded form; DecodeInfo parses the packed bytes a
// loader would actually hand over (exercised by this package's tests; the
// image/cmd tooling constructs an Info directly instead).
package boot

import (
	"encoding/binary"
	"fmt"
)

// Version is the handoff record layout version this kernel understands.
const Version uint16 = 1

// RecordSize is the packed, little-endian size in bytes of the handoff
// record described in spec.md §6.
const RecordSize = 2 + 2 + 8 + 8 + 8 + 8 + 8 + 8 + 32

// MemoryRegionKind classifies a firmware-reported memory region.
type MemoryRegionKind uint32

// Memory region kinds, matching the wire encoding in spec.md §6.
const (
	UsableRam MemoryRegionKind = iota + 1
	Reserved
	AcpiReclaimable
	AcpiNvs
	Mmio
)

func (k MemoryRegionKind) String() string {
	switch k {
	case UsableRam:
		return "usable-ram"
	case Reserved:
		return "reserved"
	case AcpiReclaimable:
		return "acpi-reclaimable"
	case AcpiNvs:
		return "acpi-nvs"
	case Mmio:
		return "mmio"
	default:
		return "unknown"
	}
}

// MemoryRegion is one entry of the firmware-provided physical memory map.
type MemoryRegion struct {
	Base   uint64
	Length uint64
	Kind   MemoryRegionKind
}

// PhysExtent describes a physical address range in bytes, used for the
// bootfs image location and (conceptually) for any other pointer+length
// pair a loader publishes.
type PhysExtent struct {
	Base   uint64
	Length uint64
}

// IsEmpty reports whether the extent covers zero bytes.
func (e PhysExtent) IsEmpty() bool {
	return e.Length == 0
}

// Info is the decoded handoff record. It is conceptually the only channel
// through which the kernel learns about physical memory layout, ACPI, the
// kernel image digest, and the staged bootfs; every field is read-only
// once constructed.
type Info struct {
	Version      uint16
	Flags        uint16
	StackTopPhys uint64
	MemoryMap    []MemoryRegion
	RSDPPhys     uint64
	Bootfs       PhysExtent
	KernelSHA256 [32]byte
}

// IsCompatible reports whether the record's version matches the compiled
// constant. A non-zero Flags value is treated as an unknown/incompatible
// flag combination per spec.md's recorded Open Question resolution: there
// is no documented behavior for non-zero flags, so this kernel rejects
// them rather than silently ignoring bits it does not understand.
func (i *Info) IsCompatible() bool {
	if i == nil {
		return false
	}
	return i.Version == Version && i.Flags == 0
}

// HasBootfs reports whether a non-empty bootfs extent was staged.
func (i *Info) HasBootfs() bool {
	return i != nil && !i.Bootfs.IsEmpty()
}

// DecodeInfo parses a packed, little-endian handoff record of the form
// described in spec.md §6:
//
//	offset  size  field
//	0       2     version
//	2       2     flags
//	4       8     stack_top
//	12      8     memory_map.base   (physical pointer, informational only)
//	20      8     memory_map.len    (element count)
//	28      8     rsdp
//	36      8     bootfs.base
//	44      8     bootfs.length
//	52      32    kernel_sha256
//
// DecodeInfo does not dereference memory_map.base — that would require a
// live physical-to-virtual mapping this package does not have. Callers
// that already hold the region slice (e.g. the image/ tooling, or a real
// kernel after identity-mapping low memory) should populate Info.MemoryMap
// directly, or use DecodeInfoWithRegions.
func DecodeInfo(record []byte) (*Info, error) {
	return DecodeInfoWithRegions(record, nil)
}

// DecodeInfoWithRegions is DecodeInfo plus an explicit, already-bounds-checked
// slice of memory regions to attach as Info.MemoryMap. The raw
// memory_map.base/len pair from the record is validated against len(regions)
// but never dereferenced as a pointer, since this package never holds a
// mapping of physical to virtual addresses.
func DecodeInfoWithRegions(record []byte, regions []MemoryRegion) (*Info, error) {
	if len(record) < RecordSize {
		return nil, fmt.Errorf("boot: handoff record too short: got %d bytes, want %d", len(record), RecordSize)
	}

	info := &Info{
		Version:      binary.LittleEndian.Uint16(record[0:2]),
		Flags:        binary.LittleEndian.Uint16(record[2:4]),
		StackTopPhys: binary.LittleEndian.Uint64(record[4:12]),
		RSDPPhys:     binary.LittleEndian.Uint64(record[28:36]),
		Bootfs: PhysExtent{
			Base:   binary.LittleEndian.Uint64(record[36:44]),
			Length: binary.LittleEndian.Uint64(record[44:52]),
		},
	}
	copy(info.KernelSHA256[:], record[52:84])

	mapLen := binary.LittleEndian.Uint64(record[20:28])
	mapBase := binary.LittleEndian.Uint64(record[12:20])

	switch {
	case mapBase == 0 || mapLen == 0:
		// Per spec.md §3: base==0 or len==0 implies an empty range.
	case regions != nil:
		if uint64(len(regions)) != mapLen {
			return nil, fmt.Errorf("boot: memory map length mismatch: record declares %d regions, got %d", mapLen, len(regions))
		}
		info.MemoryMap = regions
	}

	return info, nil
}

// Encode serializes Info back into the packed wire format. It is the
// inverse of DecodeInfo (image.SyntheticHandoff builds an Info directly
// and does not call it); it does not attempt to encode MemoryMap.Base as a real physical pointer since
// nothing in this repository allocates physical memory for a loader to
// point at — the regions themselves must be carried out of band (see
// image.SyntheticMemoryMap and DecodeInfoWithRegions).
func (i *Info) Encode() []byte {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint16(buf[0:2], i.Version)
	binary.LittleEndian.PutUint16(buf[2:4], i.Flags)
	binary.LittleEndian.PutUint64(buf[4:12], i.StackTopPhys)
	if len(i.MemoryMap) > 0 {
		binary.LittleEndian.PutUint64(buf[12:20], 1) // opaque non-zero placeholder base
		binary.LittleEndian.PutUint64(buf[20:28], uint64(len(i.MemoryMap)))
	}
	binary.LittleEndian.PutUint64(buf[28:36], i.RSDPPhys)
	binary.LittleEndian.PutUint64(buf[36:44], i.Bootfs.Base)
	binary.LittleEndian.PutUint64(buf[44:52], i.Bootfs.Length)
	copy(buf[52:84], i.KernelSHA256[:])
	return buf
}
