package snapshot

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Type tags. Byte values are part of the stable wire format.
const (
	tagEntryStart uint8 = iota
	tagEntryEnd
	tagBool
	tagInt32
	tagInt64
	tagUint32
	tagUint64
	tagIndex
	tagString
)

// growth chunk for the write buffer
const chunkSize = 4096

// EmptyIndex marks an absent index value.
const EmptyIndex = ^uint64(0)

// SnapshotData is a tag-length reader/writer over an expandable byte
// buffer. A single instance is either written or read, not both; the
// cursor is shared. Errors accumulate instead of aborting the pass.
type SnapshotData struct {
	storage    []byte
	index      int
	errs       []string
	entryStack []string
}

// New returns an empty SnapshotData ready for writing.
func New() *SnapshotData {
	return &SnapshotData{}
}

// NewFromStorage returns a SnapshotData reading from previously released
// storage.
func NewFromStorage(storage []byte) *SnapshotData {
	return &SnapshotData{storage: storage}
}

// Errors returns the accumulated error messages, in order.
func (d *SnapshotData) Errors() []string {
	return d.errs
}

// ReleaseStorage truncates the buffer to the written length and returns
// it. The SnapshotData must not be used afterwards.
func (d *SnapshotData) ReleaseStorage() []byte {
	d.storage = d.storage[:d.index]
	return d.storage
}

// AddError records an error message prefixed with the current entry path.
func (d *SnapshotData) AddError(format string, args ...any) {
	var loc strings.Builder
	loc.WriteString("At ")
	for _, entry := range d.entryStack {
		loc.WriteString(entry)
		loc.WriteByte(':')
	}
	loc.WriteByte(' ')
	loc.WriteString(fmt.Sprintf(format, args...))
	d.errs = append(d.errs, loc.String())
}

func (d *SnapshotData) ensureSpace(addition int) {
	if d.hasSpace(addition) {
		return
	}
	if addition < chunkSize {
		addition = chunkSize
	}
	d.storage = append(d.storage, make([]byte, addition)...)
}

func (d *SnapshotData) hasSpace(addition int) bool {
	return len(d.storage)-d.index >= addition
}

func (d *SnapshotData) writeRaw(data []byte) {
	d.ensureSpace(len(data))
	copy(d.storage[d.index:], data)
	d.index += len(data)
}

func (d *SnapshotData) readRaw(length int) ([]byte, bool) {
	if !d.hasSpace(length) {
		d.AddError("Unexpected end of input")
		return nil, false
	}
	data := d.storage[d.index : d.index+length]
	d.index += length
	return data, true
}

func (d *SnapshotData) writeTag(tag uint8) {
	d.writeRaw([]byte{tag})
}

func (d *SnapshotData) readTag(expected uint8) bool {
	data, ok := d.readRaw(1)
	if !ok {
		return false
	}
	if data[0] != expected {
		d.AddError("Unexpected tag %d (expected %d)", data[0], expected)
		return false
	}
	return true
}

// StartWriteEntry opens a named entry scope.
func (d *SnapshotData) StartWriteEntry(name string) {
	d.writeTag(tagEntryStart)
	d.WriteString(name)
	d.entryStack = append(d.entryStack, name)
}

// EndWriteEntry closes the innermost entry scope.
func (d *SnapshotData) EndWriteEntry() {
	d.entryStack = d.entryStack[:len(d.entryStack)-1]
	d.writeTag(tagEntryEnd)
}

// WriteBool writes a tagged boolean.
func (d *SnapshotData) WriteBool(value bool) {
	d.writeTag(tagBool)
	b := byte(0)
	if value {
		b = 1
	}
	d.writeRaw([]byte{b})
}

// WriteInt32 writes a tagged 32-bit signed integer.
func (d *SnapshotData) WriteInt32(value int32) {
	d.writeTag(tagInt32)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(value))
	d.writeRaw(buf[:])
}

// WriteInt64 writes a tagged 64-bit signed integer.
func (d *SnapshotData) WriteInt64(value int64) {
	d.writeTag(tagInt64)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(value))
	d.writeRaw(buf[:])
}

// WriteUint32 writes a tagged 32-bit unsigned integer.
func (d *SnapshotData) WriteUint32(value uint32) {
	d.writeTag(tagUint32)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	d.writeRaw(buf[:])
}

// WriteUint64 writes a tagged 64-bit unsigned integer.
func (d *SnapshotData) WriteUint64(value uint64) {
	d.writeTag(tagUint64)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	d.writeRaw(buf[:])
}

// WriteIndex writes a tagged index value. Indices are 64 bits on the wire
// regardless of platform word size.
func (d *SnapshotData) WriteIndex(value uint64) {
	d.writeTag(tagIndex)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	d.writeRaw(buf[:])
}

// WriteString writes a tagged, length-prefixed string.
func (d *SnapshotData) WriteString(str string) {
	d.writeTag(tagString)
	d.WriteUint64(uint64(len(str)))
	d.writeRaw([]byte(str))
}

// StartReadEntry consumes an entry start and its name. If expected is
// non-empty, a differing name is recorded as an error. Returns the actual
// name.
func (d *SnapshotData) StartReadEntry(expected string) (string, bool) {
	if !d.readTag(tagEntryStart) {
		return "", false
	}
	actual, ok := d.ReadString()
	if !ok {
		return "", false
	}
	if expected != "" && actual != expected {
		d.AddError("Unexpected entry %s (expected %s)", actual, expected)
		return "", false
	}
	d.entryStack = append(d.entryStack, actual)
	return actual, true
}

// EndReadEntry consumes an entry end and pops the entry scope.
func (d *SnapshotData) EndReadEntry() bool {
	if !d.readTag(tagEntryEnd) {
		return false
	}
	d.entryStack = d.entryStack[:len(d.entryStack)-1]
	return true
}

// ReadBool reads a tagged boolean.
func (d *SnapshotData) ReadBool() (bool, bool) {
	if !d.readTag(tagBool) {
		return false, false
	}
	data, ok := d.readRaw(1)
	if !ok {
		return false, false
	}
	return data[0] != 0, true
}

// ReadInt32 reads a tagged 32-bit signed integer.
func (d *SnapshotData) ReadInt32() (int32, bool) {
	if !d.readTag(tagInt32) {
		return 0, false
	}
	data, ok := d.readRaw(4)
	if !ok {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(data)), true
}

// ReadInt64 reads a tagged 64-bit signed integer.
func (d *SnapshotData) ReadInt64() (int64, bool) {
	if !d.readTag(tagInt64) {
		return 0, false
	}
	data, ok := d.readRaw(8)
	if !ok {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(data)), true
}

// ReadUint32 reads a tagged 32-bit unsigned integer.
func (d *SnapshotData) ReadUint32() (uint32, bool) {
	if !d.readTag(tagUint32) {
		return 0, false
	}
	data, ok := d.readRaw(4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data), true
}

// ReadUint64 reads a tagged 64-bit unsigned integer.
func (d *SnapshotData) ReadUint64() (uint64, bool) {
	if !d.readTag(tagUint64) {
		return 0, false
	}
	data, ok := d.readRaw(8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data), true
}

// ReadIndex reads a tagged index value.
func (d *SnapshotData) ReadIndex() (uint64, bool) {
	if !d.readTag(tagIndex) {
		return 0, false
	}
	data, ok := d.readRaw(8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data), true
}

// ReadString reads a tagged, length-prefixed string.
func (d *SnapshotData) ReadString() (string, bool) {
	if !d.readTag(tagString) {
		return "", false
	}
	size, ok := d.ReadUint64()
	if !ok {
		return "", false
	}
	// Compare in uint64 space: a corrupted length above MaxInt64 would
	// turn negative as an int and slip past the space check.
	if size > uint64(len(d.storage)-d.index) {
		d.AddError("Unexpected end of input")
		return "", false
	}
	data, _ := d.readRaw(int(size))
	return string(data), true
}

// Snapshottable is implemented by objects that can persist themselves into
// a SnapshotData.
type Snapshottable interface {
	SerializeSnapshot(d *SnapshotData)
}

// MarkUnserializable records the canonical error for an object that has no
// snapshot representation.
func (d *SnapshotData) MarkUnserializable() {
	d.AddError("Unserializable object encountered")
}
