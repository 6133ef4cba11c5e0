// Package daily handles date-named daily notes and their "Short List" task section.
package daily

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/quire/internal/apperr"
)

// Folder is the vault-relative directory holding daily notes.
const Folder = "dailies"

// DateLayout is the daily note file stem format.
const DateLayout = "2006-01-02"

// Date token conditions.
var (
	ErrEmptyDate   = apperr.New(apperr.ErrInvalidInput, "date cannot be empty")
	ErrInvalidDate = apperr.New(apperr.ErrInvalidInput, "invalid date format. Use 'today', 'yesterday', or 'YYYY-MM-DD'")
)

// ParseDate resolves "today", "yesterday" (any case) or an exact YYYY-MM-DD string to a
// calendar date in now's location.
func ParseDate(token string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, ErrEmptyDate
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.EqualFold(token, "today"):
		return today, nil
	case strings.EqualFold(token, "yesterday"):
		return today.AddDate(0, 0, -1), nil
	}

	d, err := time.ParseInLocation(DateLayout, token, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
	}
	return d, nil
}

// NotePath returns the vault-relative path of the daily note for d.
func NotePath(d time.Time) string {
	return path.Join(Folder, d.Format(DateLayout)+".md")
}
