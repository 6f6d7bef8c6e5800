package esm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// Record is one decoded major record. The payload is owned by the
// container iteration step that produced it and is never persisted.
type Record struct {
	Type   string
	FormID types.FormID
	Flags  uint32

	data []byte
}

// displayNameKinds is the set of record kinds that carry a FULL
// display-name subrecord. Kinds outside this set report no display name
// rather than being probed dynamically.
var displayNameKinds = map[string]struct{}{
	"ACTI": {}, "ALCH": {}, "AMMO": {}, "ARMO": {}, "AVIF": {}, "BOOK": {},
	"CELL": {}, "CLAS": {}, "CONT": {}, "DOOR": {}, "ENCH": {}, "EXPL": {},
	"EYES": {}, "FACT": {}, "FLOR": {}, "FURN": {}, "HAZD": {}, "HDPT": {},
	"INGR": {}, "KEYM": {}, "LCTN": {}, "LIGH": {}, "MESG": {}, "MGEF": {},
	"MISC": {}, "NPC_": {}, "PERK": {}, "PROJ": {}, "QUST": {}, "RACE": {},
	"SCRL": {}, "SHOU": {}, "SLGM": {}, "SNCT": {}, "SPEL": {}, "TACT": {},
	"TREE": {}, "WATR": {}, "WEAP": {}, "WOOP": {}, "WRLD": {},
}

// HasDisplayName reports whether this record's kind carries a FULL
// display-name subrecord at all.
func (r *Record) HasDisplayName() bool {
	_, ok := displayNameKinds[r.Type]
	return ok
}

// decompress inflates a compressed payload in place. The compressed
// layout is a 4-byte decompressed size followed by a zlib stream.
func (r *Record) decompress() error {
	if len(r.data) < 4 {
		return fmt.Errorf("malformed sub-block size: compressed payload is %d bytes", len(r.data))
	}
	want := binary.LittleEndian.Uint32(r.data[0:4])

	zr, err := zlib.NewReader(bytes.NewReader(r.data[4:]))
	if err != nil {
		return fmt.Errorf("opening compressed payload: %w", err)
	}
	defer func() { _ = zr.Close() }()

	out := make([]byte, 0, want)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, io.LimitReader(zr, int64(want))); err != nil {
		return fmt.Errorf("inflating payload: %w", err)
	}
	r.data = buf.Bytes()
	return nil
}

// EditorID returns the record's EDID subrecord value, the short
// human-assigned identifier. Empty string when the record has none.
func (r *Record) EditorID() (string, error) {
	var edid string
	err := r.walk(func(tag string, payload []byte) bool {
		if tag == "EDID" {
			edid = zstring(payload)
			return false
		}
		return true
	})
	if err != nil {
		return "", fmt.Errorf("expected short-id field: %w", err)
	}
	return edid, nil
}

// DisplayName returns the record's FULL display-name subrecord. For
// localized plugins the subrecord holds a string-table key resolved
// against tables; otherwise it is an inline zstring. The second return
// is false when the record kind has no display-name capability or the
// subrecord is absent.
func (r *Record) DisplayName(localized bool, tables *StringTables) (string, bool, error) {
	if !r.HasDisplayName() {
		return "", false, nil
	}

	var name string
	var found bool
	err := r.walk(func(tag string, payload []byte) bool {
		if tag != "FULL" {
			return true
		}
		if localized {
			if len(payload) < 4 {
				return true
			}
			key := binary.LittleEndian.Uint32(payload[0:4])
			if s, ok := tables.Lookup(key); ok && s != "" {
				name, found = s, true
			}
		} else {
			if s := zstring(payload); s != "" {
				name, found = s, true
			}
		}
		return false
	})
	if err != nil {
		return "", false, err
	}
	return name, found, nil
}

// walk iterates the record's subrecords, honoring XXXX size overrides. A
// size pointing past the payload ends the walk with an error.
func (r *Record) walk(fn func(tag string, payload []byte) bool) error {
	return walkSubrecords(r.data, fn)
}

// walkSubrecords walks a subrecord stream: 4-byte tag, uint16 size,
// payload. An XXXX subrecord carries the true 32-bit size of the next
// subrecord, whose own size field is then zero.
func walkSubrecords(data []byte, fn func(tag string, payload []byte) bool) error {
	var override uint32
	var hasOverride bool

	off := 0
	for off+6 <= len(data) {
		tag := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint16(data[off+4 : off+6]))
		off += 6

		if hasOverride {
			size = int(override)
			hasOverride = false
		}

		if off+size > len(data) {
			return fmt.Errorf("malformed sub-block size: %s claims %d bytes with %d remaining", tag, size, len(data)-off)
		}
		payload := data[off : off+size]
		off += size

		if tag == "XXXX" {
			if len(payload) != 4 {
				return fmt.Errorf("malformed sub-block size: XXXX payload is %d bytes", len(payload))
			}
			override = binary.LittleEndian.Uint32(payload)
			hasOverride = true
			continue
		}

		if !fn(tag, payload) {
			return nil
		}
	}
	return nil
}

// zstring decodes a null-terminated string payload.
func zstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
