package services

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FeedPerPage is the fixed page size of every feed.
const FeedPerPage = 16

// ErrBadCursor marks a cursor that cannot be decoded.
var ErrBadCursor = errors.New("malformed cursor")

// Cursor is a keyset position in a (created_at desc, id desc) ordering.
// Next tells whether it points at the items after the position or before it.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uint      `json:"id"`
	Next      bool      `json:"_pointsToNextItems"`
}

// Encode returns the opaque token form of c.
func (c Cursor) Encode() string {
	c.CreatedAt = c.CreatedAt.UTC()
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	if c.ID == 0 || c.CreatedAt.IsZero() {
		return nil, ErrBadCursor
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// Page is one feed page in the cursor paginator format.
type Page[T any] struct {
	Data        []T     `json:"data"`
	Path        string  `json:"path"`
	PerPage     int     `json:"per_page"`
	NextCursor  *string `json:"next_cursor"`
	NextPageURL *string `json:"next_page_url"`
	PrevCursor  *string `json:"prev_cursor"`
	PrevPageURL *string `json:"prev_page_url"`
}

func emptyPage[T any](path string) *Page[T] {
	return &Page[T]{Data: []T{}, Path: path, PerPage: FeedPerPage}
}

func (p *Page[T]) setCursors(next, prev *Cursor) {
	if next != nil {
		tok := next.Encode()
		u := p.Path + "?cursor=" + tok
		p.NextCursor, p.NextPageURL = &tok, &u
	}
	if prev != nil {
		tok := prev.Encode()
		u := p.Path + "?cursor=" + tok
		p.PrevCursor, p.PrevPageURL = &tok, &u
	}
}

type keyed interface {
	CursorKey() (time.Time, uint)
}

func cursorAt[T keyed](item T, next bool) *Cursor {
	t, id := item.CursorKey()
	return &Cursor{CreatedAt: t.UTC(), ID: id, Next: next}
}

// paginate loads one page of q ordered by table.created_at desc, table.id desc.
// A nil cursor loads the first page.
func paginate[T keyed](q *gorm.DB, table string, c *Cursor, perPage int) ([]T, *Cursor, *Cursor, error) {
	col := table + ".created_at"
	idCol := table + ".id"
	forward := c == nil || c.Next
	if c != nil {
		op := "<"
		if !forward {
			op = ">"
		}
		q = q.Where(fmt.Sprintf("(%[1]s %[3]s ? OR (%[1]s = ? AND %[2]s %[3]s ?))", col, idCol, op),
			c.CreatedAt, c.CreatedAt, c.ID)
	}
	if forward {
		q = q.Order(col + " DESC").Order(idCol + " DESC")
	} else {
		q = q.Order(col + " ASC").Order(idCol + " ASC")
	}

	var items []T
	if err := q.Limit(perPage + 1).Find(&items).Error; err != nil {
		return nil, nil, nil, err
	}
	more := len(items) > perPage
	if more {
		items = items[:perPage]
	}
	if !forward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	if len(items) == 0 {
		return items, nil, nil, nil
	}

	var next, prev *Cursor
	first, last := items[0], items[len(items)-1]
	if forward {
		if more {
			next = cursorAt(last, true)
		}
		if c != nil {
			prev = cursorAt(first, false)
		}
	} else {
		if more {
			prev = cursorAt(first, false)
		}
		next = cursorAt(last, true)
	}
	return items, next, prev, nil
}
