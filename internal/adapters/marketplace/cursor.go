package marketplace

import (
	"fmt"
	"strconv"
)

// CursorKind tags which variant a Cursor holds
type CursorKind int

const (
	CursorNone CursorKind = iota
	CursorOffset
	CursorToken
)

func (k CursorKind) String() string {
	switch k {
	case CursorNone:
		return "none"
	case CursorOffset:
		return "offset"
	case CursorToken:
		return "token"
	default:
		return "CursorKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Cursor is a pagination position: either nothing (first or past last page),
// a numeric offset, or an opaque token. A single client only ever returns
// one of offset or token.
type Cursor struct {
	kind   CursorKind
	offset int
	token  string
}

// NoCursor is the start position and the end-of-data marker
var NoCursor = Cursor{}

// OffsetCursor returns a numeric offset cursor
func OffsetCursor(offset int) Cursor {
	return Cursor{kind: CursorOffset, offset: offset}
}

// TokenCursor returns an opaque token cursor. An empty token is NoCursor.
func TokenCursor(token string) Cursor {
	if token == "" {
		return NoCursor
	}
	return Cursor{kind: CursorToken, token: token}
}

// Kind reports the variant
func (c Cursor) Kind() CursorKind { return c.kind }

// IsNone reports whether the cursor carries no position
func (c Cursor) IsNone() bool { return c.kind == CursorNone }

// Offset returns the offset and whether c is an offset cursor
func (c Cursor) Offset() (int, bool) {
	return c.offset, c.kind == CursorOffset
}

// Token returns the token and whether c is a token cursor
func (c Cursor) Token() (string, bool) {
	return c.token, c.kind == CursorToken
}

func (c Cursor) String() string {
	switch c.kind {
	case CursorOffset:
		return fmt.Sprintf("offset:%d", c.offset)
	case CursorToken:
		return "token:" + c.token
	default:
		return "none"
	}
}
