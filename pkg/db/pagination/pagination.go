package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size" binding:"omitempty,gte=1,lte=250"`
}

// Size returns the effective page size.
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidPageToken
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}
	return &cursor, nil
}

// Trim cuts data to limit and reports whether more rows were fetched.
func Trim[T any](data []*T, limit int) ([]*T, bool) {
	if len(data) > limit {
		return data[:limit], true
	}
	return data, false
}

// Validate rejects a page token that does not carry a usable seek position.
func (p Pagination) Validate() error {
	if p.PageToken == "" {
		return nil
	}
	cursor, err := DecodeCursor(p.PageToken)
	if err != nil {
		return err
	}
	if _, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err != nil {
		return ErrInvalidPageToken
	}
	if id, err := strconv.ParseInt(cursor.ID, 10, 64); err != nil || id <= 0 {
		return ErrInvalidPageToken
	}
	return nil
}

// Collect trims rows fetched with one lookahead row, drops nil rows and
// points the next-page token at the last row kept.
func Collect[T any](rows []*T, size int, key func(*T) Cursor) ([]T, PageInfo) {
	kept, hasMore := Trim(rows, size)
	out := make([]T, 0, len(kept))
	var last *T
	for _, row := range kept {
		if row != nil {
			out = append(out, *row)
			last = row
		}
	}

	info := PageInfo{HasMore: hasMore}
	if hasMore && last != nil {
		if token, err := EncodeCursor(key(last)); err == nil {
			info.NextPageToken = token
		}
	}
	return out, info
}

// SeekCursor is the cursor of a row ordered by created_at desc, id desc.
func SeekCursor(id int64, createdAt time.Time) Cursor {
	return Cursor{ID: strconv.FormatInt(id, 10), CreatedAt: createdAt.Format(time.RFC3339Nano)}
}
