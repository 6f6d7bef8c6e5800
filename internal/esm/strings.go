package esm

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// StringTables holds the merged contents of a plugin's localized string
// tables. Lookups are safe for concurrent use after loading.
type StringTables struct {
	mu      sync.RWMutex
	entries map[uint32]string
}

// Lookup resolves a string-table key. A nil receiver reports a miss,
// matching the non-localized case.
func (t *StringTables) Lookup(key uint32) (string, bool) {
	if t == nil {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.entries[key]
	return s, ok
}

// Len returns the number of loaded strings.
func (t *StringTables) Len() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// stringTableExts lists the three table files a localized plugin may
// carry. .STRINGS entries are null-terminated; the other two are
// length-prefixed.
var stringTableExts = []struct {
	ext      string
	prefixed bool
}{
	{".STRINGS", false},
	{".DLSTRINGS", true},
	{".ILSTRINGS", true},
}

// LoadStringTables loads the plugin's string tables from the Strings
// directory under dataDir, e.g. Strings/Dawnguard_English.STRINGS. The
// three table files are loaded concurrently. Missing files are not an
// error: lookups against absent tables simply miss and the label
// resolver falls through to its placeholder tier.
func LoadStringTables(dataDir, pluginName, language string) (*StringTables, error) {
	base := strings.TrimSuffix(pluginName, filepath.Ext(pluginName))
	tables := &StringTables{entries: make(map[uint32]string)}

	var g errgroup.Group
	for _, st := range stringTableExts {
		path := filepath.Join(dataDir, "Strings", base+"_"+language+st.ext)
		prefixed := st.prefixed
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return fmt.Errorf("reading string table %s: %w", filepath.Base(path), err)
			}
			entries, err := parseStringTable(data, prefixed)
			if err != nil {
				return fmt.Errorf("parsing string table %s: %w", filepath.Base(path), err)
			}
			tables.mu.Lock()
			for k, v := range entries {
				tables.entries[k] = v
			}
			tables.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// parseStringTable decodes one table file: a count and data-block size,
// a directory of (id, offset) pairs, then the string data block.
func parseStringTable(data []byte, prefixed bool) (map[uint32]string, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("table is %d bytes, want at least 8", len(data))
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	dirEnd := 8 + int64(count)*8
	if dirEnd > int64(len(data)) {
		return nil, fmt.Errorf("directory of %d entries exceeds table size %d", count, len(data))
	}

	entries := make(map[uint32]string, count)
	block := data[dirEnd:]
	for i := int64(0); i < int64(count); i++ {
		off := 8 + i*8
		id := binary.LittleEndian.Uint32(data[off : off+4])
		strOff := binary.LittleEndian.Uint32(data[off+4 : off+8])
		if int64(strOff) >= int64(len(block)) {
			continue // bad directory entry, skip it
		}
		s := block[strOff:]
		if prefixed {
			if len(s) < 4 {
				continue
			}
			n := binary.LittleEndian.Uint32(s[0:4])
			if int64(n) > int64(len(s)-4) {
				continue
			}
			entries[id] = zstring(s[4 : 4+n])
		} else {
			entries[id] = zstring(s)
		}
	}
	return entries, nil
}
