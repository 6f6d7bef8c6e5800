// Package esmtest builds synthetic plugin containers for tests.
//
// The builder emits the same framing the esm package reads: a TES4 file
// header followed by records, optionally wrapped in GRUP blocks or
// zlib-compressed. It exists so scanner and orchestrator tests can
// construct fixture plugins without binary blobs checked into the tree.
package esmtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// Builder accumulates a synthetic plugin container.
type Builder struct {
	game        types.GameRelease
	headerFlags uint32
	masters     []string
	body        bytes.Buffer
}

// NewBuilder starts a plugin for the given release.
func NewBuilder(game types.GameRelease) *Builder {
	return &Builder{game: game}
}

// Localized sets the plugin's localized-strings header flag.
func (b *Builder) Localized() *Builder {
	b.headerFlags |= 0x80
	return b
}

// Light sets the plugin's light-module header flag.
func (b *Builder) Light() *Builder {
	b.headerFlags |= 0x200
	return b
}

// Master adds a MAST entry to the file header.
func (b *Builder) Master(name string) *Builder {
	b.masters = append(b.masters, name)
	return b
}

// Sub encodes one subrecord.
func Sub(tag string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(tag)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

// ZSub encodes a null-terminated string subrecord.
func ZSub(tag, value string) []byte {
	return Sub(tag, append([]byte(value), 0))
}

// U32Sub encodes a little-endian uint32 subrecord.
func U32Sub(tag string, v uint32) []byte {
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], v)
	return Sub(tag, p[:])
}

// Record appends a major record with the given subrecords.
func (b *Builder) Record(recType string, formID types.FormID, subs ...[]byte) *Builder {
	return b.RecordFlags(recType, formID, 0, subs...)
}

// RecordFlags appends a major record with explicit record flags.
func (b *Builder) RecordFlags(recType string, formID types.FormID, flags uint32, subs ...[]byte) *Builder {
	var data bytes.Buffer
	for _, s := range subs {
		data.Write(s)
	}
	b.writeRecordHeader(&b.body, recType, uint32(data.Len()), flags, uint32(formID))
	b.body.Write(data.Bytes())
	return b
}

// CompressedRecord appends a record whose payload is zlib-compressed.
func (b *Builder) CompressedRecord(recType string, formID types.FormID, subs ...[]byte) *Builder {
	var plain bytes.Buffer
	for _, s := range subs {
		plain.Write(s)
	}

	var data bytes.Buffer
	_ = binary.Write(&data, binary.LittleEndian, uint32(plain.Len()))
	zw := zlib.NewWriter(&data)
	_, _ = zw.Write(plain.Bytes())
	_ = zw.Close()

	b.writeRecordHeader(&b.body, recType, uint32(data.Len()), 0x00040000, uint32(formID))
	b.body.Write(data.Bytes())
	return b
}

// RawRecord appends a record with an arbitrary, possibly malformed
// payload. The framing size field is still correct so iteration can skip
// past it.
func (b *Builder) RawRecord(recType string, formID types.FormID, flags uint32, payload []byte) *Builder {
	b.writeRecordHeader(&b.body, recType, uint32(len(payload)), flags, uint32(formID))
	b.body.Write(payload)
	return b
}

// Group wraps the records built by fn in a GRUP block.
func (b *Builder) Group(label string, fn func(*Builder)) *Builder {
	inner := NewBuilder(b.game)
	fn(inner)

	hdrSize := b.game.HeaderSize()
	var hdr bytes.Buffer
	hdr.WriteString("GRUP")
	_ = binary.Write(&hdr, binary.LittleEndian, uint32(hdrSize+inner.body.Len()))
	lbl := make([]byte, 4)
	copy(lbl, label)
	hdr.Write(lbl)
	hdr.Write(make([]byte, hdrSize-hdr.Len())) // group type, stamp, padding

	b.body.Write(hdr.Bytes())
	b.body.Write(inner.body.Bytes())
	return b
}

// Bytes assembles the full container: TES4 header record then body.
func (b *Builder) Bytes() []byte {
	var hdrData bytes.Buffer
	hedr := make([]byte, 12) // version, record count, next object id
	hdrData.Write(Sub("HEDR", hedr))
	for _, m := range b.masters {
		hdrData.Write(ZSub("MAST", m))
		hdrData.Write(Sub("DATA", make([]byte, 8)))
	}

	var out bytes.Buffer
	b.writeRecordHeader(&out, "TES4", uint32(hdrData.Len()), b.headerFlags, 0)
	out.Write(hdrData.Bytes())
	out.Write(b.body.Bytes())
	return out.Bytes()
}

// WriteFile writes the container to dir/name and returns the full path.
func (b *Builder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("writing plugin fixture %s: %v", name, err)
	}
	return path
}

func (b *Builder) writeRecordHeader(w *bytes.Buffer, recType string, dataSize, flags, formID uint32) {
	w.WriteString(recType)
	_ = binary.Write(w, binary.LittleEndian, dataSize)
	_ = binary.Write(w, binary.LittleEndian, flags)
	_ = binary.Write(w, binary.LittleEndian, formID)
	_ = binary.Write(w, binary.LittleEndian, uint32(0)) // version control
	if b.game.HeaderSize() == 24 {
		_ = binary.Write(w, binary.LittleEndian, uint32(0)) // form version + unknown
	}
}

// WriteStringTable writes a synthetic .STRINGS-style table under
// dir/Strings for the given plugin and language.
func WriteStringTable(t *testing.T, dir, pluginName, language, ext string, entries map[uint32]string) string {
	t.Helper()

	prefixed := ext != ".STRINGS"

	var block bytes.Buffer
	var dir2 bytes.Buffer
	for id, s := range entries {
		_ = binary.Write(&dir2, binary.LittleEndian, id)
		_ = binary.Write(&dir2, binary.LittleEndian, uint32(block.Len()))
		if prefixed {
			_ = binary.Write(&block, binary.LittleEndian, uint32(len(s)+1))
		}
		block.WriteString(s)
		block.WriteByte(0)
	}

	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, uint32(len(entries)))
	_ = binary.Write(&out, binary.LittleEndian, uint32(block.Len()))
	out.Write(dir2.Bytes())
	out.Write(block.Bytes())

	stringsDir := filepath.Join(dir, "Strings")
	if err := os.MkdirAll(stringsDir, 0o755); err != nil {
		t.Fatalf("creating Strings dir: %v", err)
	}
	base := pluginName[:len(pluginName)-len(filepath.Ext(pluginName))]
	path := filepath.Join(stringsDir, base+"_"+language+ext)
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatalf("writing string table: %v", err)
	}
	return path
}
