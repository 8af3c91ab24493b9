// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package journal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field names of the journal line format.
const (
	FieldPriority     = "priority"
	FieldKeyStartDate = "key_start_date"
	FieldURI          = "uri"
)

// ErrMalformedEntry is returned for lines missing a required field or holding
// a value that does not parse.
var ErrMalformedEntry = errors.New("malformed journal entry")

// Entry is one pending "page changed" notification.
type Entry struct {
	// URI identifies the page (full page key).
	URI string

	// Priority orders processing; lower values are more urgent.
	Priority uint8

	// KeyStartDate is a microsecond timestamp used as the not-before time
	// and as a tiebreaker between entries of equal priority.
	KeyStartDate int64
}

// Record is an Entry together with its position in a journal file.
type Record struct {
	Entry

	// Hour is the hour-of-day file the record was read from.
	Hour int

	// Offset is the byte offset of the first byte of the line.
	Offset int64

	// Length is the line length including the terminating newline.
	Length int
}

var uriEscaper = strings.NewReplacer("%", "%25", ";", "%3B", "\n", "%0A", "\r", "%0D")

// EscapeURI escapes the characters that would break the line format.
func EscapeURI(uri string) string {
	return uriEscaper.Replace(uri)
}

// UnescapeURI reverses EscapeURI. Unknown escapes are kept verbatim.
func UnescapeURI(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			switch strings.ToUpper(s[i+1 : i+3]) {
			case "25":
				b.WriteByte('%')
				i += 2
				continue
			case "3B":
				b.WriteByte(';')
				i += 2
				continue
			case "0A":
				b.WriteByte('\n')
				i += 2
				continue
			case "0D":
				b.WriteByte('\r')
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// MarshalLine serializes the entry as one journal line, newline included.
func (e Entry) MarshalLine() []byte {
	line := fmt.Sprintf("%s=%d;%s=%d;%s=%s\n",
		FieldPriority, e.Priority,
		FieldKeyStartDate, e.KeyStartDate,
		FieldURI, EscapeURI(e.URI))
	return []byte(line)
}

// ParseLine parses one journal line (without its newline).
func ParseLine(line []byte) (Entry, error) {
	var (
		e                         Entry
		hasPrio, hasDate, hasURI bool
	)

	for _, field := range strings.Split(strings.TrimRight(string(line), "\r"), ";") {
		name, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch name {
		case FieldPriority:
			p, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return Entry{}, fmt.Errorf("%w: priority %q", ErrMalformedEntry, value)
			}
			e.Priority = uint8(p)
			hasPrio = true
		case FieldKeyStartDate:
			d, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Entry{}, fmt.Errorf("%w: key_start_date %q", ErrMalformedEntry, value)
			}
			e.KeyStartDate = d
			hasDate = true
		case FieldURI:
			e.URI = UnescapeURI(value)
			hasURI = e.URI != ""
		}
	}

	if !hasPrio || !hasDate || !hasURI {
		return Entry{}, fmt.Errorf("%w: missing required field", ErrMalformedEntry)
	}
	return e, nil
}
