// Package pagination pages through spreadsheet rows. A read that stops
// before the last row hands out a cursor; presenting it again resumes after
// the rows already returned, provided the file has not changed in between.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const cursorVersion = 1

// ErrStale reports a cursor issued for another file, sheet or file version.
var ErrStale = errors.New("cursor: file changed since the cursor was issued")

// Cursor is the decoded continuation token. The wire form is minified JSON
// in unpadded URL-safe base64.
type Cursor struct {
	Version int    `json:"v"`
	File    string `json:"f"`
	Sheet   string `json:"s,omitempty"`
	Offset  int    `json:"o"`
	Limit   int    `json:"n"`
	ModTime int64  `json:"m"`
}

// Encode renders c as an opaque token.
func (c Cursor) Encode() (string, error) {
	c.Version = cursorVersion
	if err := c.check(); err != nil {
		return "", err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode parses a token produced by Encode.
func Decode(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, errors.New("cursor: empty token")
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("cursor: invalid base64: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("cursor: invalid json: %w", err)
	}
	if c.Version != cursorVersion {
		return Cursor{}, fmt.Errorf("cursor: unsupported version %d", c.Version)
	}
	if err := c.check(); err != nil {
		return Cursor{}, err
	}
	return c, nil
}

func (c Cursor) check() error {
	switch {
	case strings.TrimSpace(c.File) == "":
		return errors.New("cursor: file required")
	case c.Offset < 0:
		return errors.New("cursor: offset must be >= 0")
	case c.Limit <= 0:
		return errors.New("cursor: limit must be > 0")
	}
	return nil
}

// Verify returns ErrStale unless c was issued for file and sheet at mtime.
func (c Cursor) Verify(file, sheet string, mtime time.Time) error {
	if c.File != file || c.Sheet != sheet || c.ModTime != mtime.UnixNano() {
		return ErrStale
	}
	return nil
}

// Window is the run of rows one read returns. Limit 0 means every row from
// Offset on.
type Window struct {
	Offset int
	Limit  int
}

// Resume continues from c. A positive limit overrides the cursor's page size.
func Resume(c Cursor, limit int) Window {
	if limit <= 0 {
		limit = c.Limit
	}
	return Window{Offset: c.Offset, Limit: limit}
}

// Bounds clamps w to total rows and returns the half-open [start, end).
func (w Window) Bounds(total int) (start, end int) {
	start = min(max(w.Offset, 0), total)
	end = total
	if w.Limit > 0 && start+w.Limit < total {
		end = start + w.Limit
	}
	return start, end
}

// Next returns the cursor for the rows after w, or "" when w reaches the
// last of total rows.
func (w Window) Next(file, sheet string, mtime time.Time, total int) (string, error) {
	_, end := w.Bounds(total)
	if w.Limit <= 0 || end >= total {
		return "", nil
	}
	return Cursor{File: file, Sheet: sheet, Offset: end, Limit: w.Limit, ModTime: mtime.UnixNano()}.Encode()
}
