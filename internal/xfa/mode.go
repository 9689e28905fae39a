// Package xfa turns the XML streams of an XFA form into the payload of the
// XFA output section, at one of several fidelity levels.
package xfa

import (
	"bytes"
	"fmt"
	"strings"
)

// Mode selects how much of the form XML is kept
type Mode string

const (
	// ModeOff disables XFA extraction
	ModeOff Mode = "off"
	// ModeRaw emits the XML bytes untouched
	ModeRaw Mode = "raw"
	// ModeFull converts the whole XML tree to JSON
	ModeFull Mode = "full"
	// ModeClean emits only the filled-in field values as a flat record
	ModeClean Mode = "clean"
)

// Modes lists the accepted mode names in documentation order
var Modes = []Mode{ModeOff, ModeRaw, ModeFull, ModeClean}

// ParseMode validates a mode name, case-insensitively
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown XFA mode %q (want off, raw, full or clean)", s)
}

func (m Mode) String() string { return string(m) }

// Blob is the form XML as found in the document: one buffer per stream, in
// the order the streams appear in the form dictionary.
type Blob [][]byte

// Empty reports whether the blob carries no form data at all
func (b Blob) Empty() bool {
	for _, part := range b {
		if len(bytes.TrimSpace(part)) > 0 {
			return false
		}
	}
	return true
}

// Concat joins the streams into one buffer
func (b Blob) Concat() []byte {
	size := 0
	for _, part := range b {
		size += len(part)
	}
	out := make([]byte, 0, size)
	for _, part := range b {
		out = append(out, part...)
	}
	return out
}
