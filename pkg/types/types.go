package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownGame is returned when a game release is not in the whitelist
	ErrUnknownGame = errors.New("unknown game release")
	// ErrInvalidFormID is returned when a form id string cannot be parsed
	ErrInvalidFormID = errors.New("invalid form id")
)

// FormID is a record's numeric identifier inside its plugin container.
// The upper byte holds the master index; the lower 24 bits are the
// container-local object id used as the database key.
type FormID uint32

// ObjectID returns the container-local 24-bit object id.
func (f FormID) ObjectID() uint32 {
	return uint32(f) & 0x00FFFFFF
}

// String renders the object id as exactly six uppercase hex digits.
func (f FormID) String() string {
	return fmt.Sprintf("%06X", f.ObjectID())
}

// ParseFormID parses a 1-8 digit hex string into a FormID.
func ParseFormID(s string) (FormID, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" || len(s) > 8 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormID, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormID, s)
	}
	return FormID(v), nil
}

// GameRelease identifies a specific game edition. The set is a fixed
// whitelist; anything else is rejected by ParseGameRelease.
type GameRelease string

const (
	Oblivion   GameRelease = "Oblivion"
	Skyrim     GameRelease = "Skyrim"
	SkyrimSE   GameRelease = "SkyrimSE"
	SkyrimVR   GameRelease = "SkyrimVR"
	EnderalSE  GameRelease = "EnderalSE"
	Fallout4   GameRelease = "Fallout4"
	Fallout4VR GameRelease = "Fallout4VR"
	Starfield  GameRelease = "Starfield"
)

// AllReleases lists every supported release in display order.
var AllReleases = []GameRelease{
	Oblivion, Skyrim, SkyrimSE, SkyrimVR, EnderalSE, Fallout4, Fallout4VR, Starfield,
}

// tableNames maps each release to its database table. Table names are
// resolved only through this map, never interpolated from unchecked input.
var tableNames = map[GameRelease]string{
	Oblivion:   "oblivion",
	Skyrim:     "skyrim",
	SkyrimSE:   "skyrimse",
	SkyrimVR:   "skyrimvr",
	EnderalSE:  "enderalse",
	Fallout4:   "fallout4",
	Fallout4VR: "fallout4vr",
	Starfield:  "starfield",
}

// ParseGameRelease resolves a case-insensitive release name against the
// whitelist.
func ParseGameRelease(s string) (GameRelease, error) {
	for _, g := range AllReleases {
		if strings.EqualFold(string(g), s) {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGame, s)
}

// TableName returns the database table for this release.
func (g GameRelease) TableName() (string, error) {
	name, ok := tableNames[g]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGame, string(g))
	}
	return name, nil
}

// HeaderSize returns the size in bytes of a record or group header in
// this release's container format.
func (g GameRelease) HeaderSize() int {
	if g == Oblivion {
		return 20
	}
	return 24
}

// SupportsLocalization reports whether plugins for this release may carry
// localized string tables instead of inline display names.
func (g GameRelease) SupportsLocalization() bool {
	return g != Oblivion
}

// Entry is one extracted database row. FormID is stored pre-formatted as
// six uppercase hex digits; Name is never empty.
type Entry struct {
	Plugin string
	FormID string
	Name   string
}
