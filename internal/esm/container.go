package esm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// Plugin-level flags carried on the TES4 header record.
const (
	headerFlagMaster    = 0x00000001
	headerFlagLocalized = 0x00000080
	headerFlagLight     = 0x00000200
)

// recordFlagCompressed marks a record whose payload is zlib-compressed.
const recordFlagCompressed = 0x00040000

// Header holds the plugin-level metadata read from the TES4 record.
type Header struct {
	Flags     uint32
	Masters   []string
	NumRecord uint32
}

// IsMaster reports whether the plugin carries the master (ESM) flag.
func (h Header) IsMaster() bool { return h.Flags&headerFlagMaster != 0 }

// IsLocalized reports whether display names are keys into external string
// tables rather than inline strings.
func (h Header) IsLocalized() bool { return h.Flags&headerFlagLocalized != 0 }

// IsLight reports whether the plugin carries the light-module (ESL) flag.
func (h Header) IsLight() bool { return h.Flags&headerFlagLight != 0 }

// Container is an open plugin file. It is not safe for concurrent use;
// one container is open at a time per run and Close releases the
// underlying file handle before the next plugin opens.
type Container struct {
	r       io.ReaderAt
	size    int64
	file    *os.File // nil when opened from a reader
	game    types.GameRelease
	hdrSize int64

	Header Header

	offset int64
	groups []int64 // stack of enclosing group end offsets
}

// Open opens the plugin file at path for the given game release and
// validates its file header.
func Open(path string, game types.GameRelease) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plugin: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("opening plugin: %w", err)
	}
	c, err := OpenReader(f, info.Size(), game)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	c.file = f
	return c, nil
}

// OpenReader opens a plugin container from an arbitrary reader. Used by
// tests and callers that manage the file handle themselves.
func OpenReader(r io.ReaderAt, size int64, game types.GameRelease) (*Container, error) {
	c := &Container{
		r:       r,
		size:    size,
		game:    game,
		hdrSize: int64(game.HeaderSize()),
	}
	if err := c.readFileHeader(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close releases the underlying file handle, if any.
func (c *Container) Close() error {
	if c.file != nil {
		return c.file.Close()
	}
	return nil
}

// readFileHeader reads and validates the TES4 record at offset 0 and
// positions the iterator after it.
func (c *Container) readFileHeader() error {
	hdr := make([]byte, c.hdrSize)
	if _, err := c.r.ReadAt(hdr, 0); err != nil {
		return fmt.Errorf("header parse failure: %w", err)
	}
	if string(hdr[0:4]) != "TES4" {
		return fmt.Errorf("header parse failure: file does not begin with a TES4 record (got %q)", hdr[0:4])
	}

	dataSize := int64(binary.LittleEndian.Uint32(hdr[4:8]))
	c.Header.Flags = binary.LittleEndian.Uint32(hdr[8:12])

	if c.hdrSize+dataSize > c.size {
		return fmt.Errorf("header parse failure: declared size %d exceeds file size %d", dataSize, c.size)
	}

	data := make([]byte, dataSize)
	if dataSize > 0 {
		if _, err := c.r.ReadAt(data, c.hdrSize); err != nil {
			return fmt.Errorf("header parse failure: %w", err)
		}
	}
	c.parseHeaderSubrecords(data)

	c.offset = c.hdrSize + dataSize
	return nil
}

// parseHeaderSubrecords pulls the master list and record count out of the
// TES4 payload. Malformed trailing data is ignored; the header record is
// best-effort metadata.
func (c *Container) parseHeaderSubrecords(data []byte) {
	walkSubrecords(data, func(tag string, payload []byte) bool {
		switch tag {
		case "MAST":
			c.Header.Masters = append(c.Header.Masters, zstring(payload))
		case "HEDR":
			if len(payload) >= 8 {
				c.Header.NumRecord = binary.LittleEndian.Uint32(payload[4:8])
			}
		}
		return true
	})
}

// Next returns the next major record in container-native order,
// descending into GRUP blocks. It returns io.EOF at end of container.
//
// A record whose payload cannot be read or decompressed is reported as a
// *RecordError; framing has already advanced past it, so the caller may
// keep iterating. A structural error (sizes pointing past the file)
// terminates iteration with a non-EOF, non-RecordError error.
func (c *Container) Next() (*Record, error) {
	for {
		// Pop groups the cursor has moved past.
		for len(c.groups) > 0 && c.offset >= c.groups[len(c.groups)-1] {
			c.groups = c.groups[:len(c.groups)-1]
		}

		limit := c.size
		if len(c.groups) > 0 {
			limit = c.groups[len(c.groups)-1]
		}
		if c.offset >= limit {
			if len(c.groups) == 0 {
				return nil, io.EOF
			}
			continue
		}

		if c.offset+c.hdrSize > limit {
			return nil, fmt.Errorf("truncated header at offset %d", c.offset)
		}

		hdr := make([]byte, c.hdrSize)
		if _, err := c.r.ReadAt(hdr, c.offset); err != nil {
			return nil, fmt.Errorf("reading header at offset %d: %w", c.offset, err)
		}
		tag := string(hdr[0:4])

		if tag == "GRUP" {
			groupSize := int64(binary.LittleEndian.Uint32(hdr[4:8]))
			end := c.offset + groupSize
			if groupSize < c.hdrSize || end > limit {
				return nil, fmt.Errorf("group at offset %d has size %d past its enclosing block", c.offset, groupSize)
			}
			c.groups = append(c.groups, end)
			c.offset += c.hdrSize
			continue
		}

		dataSize := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		flags := binary.LittleEndian.Uint32(hdr[8:12])
		formID := types.FormID(binary.LittleEndian.Uint32(hdr[12:16]))

		start := c.offset + c.hdrSize
		end := start + dataSize
		if end > limit {
			return nil, fmt.Errorf("record %s at offset %d has size %d past its enclosing block", tag, c.offset, dataSize)
		}

		// Advance framing before touching the payload so a bad payload
		// never stalls iteration.
		c.offset = end

		data := make([]byte, dataSize)
		if dataSize > 0 {
			if _, err := c.r.ReadAt(data, start); err != nil {
				return nil, &RecordError{Type: tag, FormID: formID, Err: fmt.Errorf("reading payload: %w", err)}
			}
		}

		rec := &Record{Type: tag, FormID: formID, Flags: flags, data: data}
		if flags&recordFlagCompressed != 0 {
			if err := rec.decompress(); err != nil {
				return nil, &RecordError{Type: tag, FormID: formID, Err: err}
			}
		}
		return rec, nil
	}
}

// RecordError reports a failure confined to a single record. Iteration
// may continue after receiving one.
type RecordError struct {
	Type   string
	FormID types.FormID
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s %s: %v", e.Type, e.FormID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
