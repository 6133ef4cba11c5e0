// Package tasks finds and rewrites checkbox task lines such as "- [ ] Call Mom".
package tasks

import (
	"fmt"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

// Status is the state encoded by a task's checkbox marker.
type Status string

// Canonical statuses. The name is the wire form accepted from callers.
const (
	Completed  Status = "Completed"
	InProgress Status = "InProgress"
	Forwarded  Status = "Forwarded"
	Scheduled  Status = "Scheduled"
	Open       Status = "Open"
)

var markers = map[Status]rune{
	Completed:  'x',
	InProgress: '/',
	Forwarded:  '>',
	Scheduled:  '<',
	Open:       ' ',
}

// ErrInvalidStatus is returned for any name outside the canonical set.
var ErrInvalidStatus = apperr.New(apperr.ErrInvalidInput, "invalid status")

// Statuses returns the canonical statuses in display order.
func Statuses() []Status {
	return []Status{Completed, InProgress, Forwarded, Scheduled, Open}
}

// ParseStatus validates a case-sensitive status name.
func ParseStatus(name string) (Status, error) {
	s := Status(name)
	if _, ok := markers[s]; !ok {
		return "", fmt.Errorf("%w '%s'. Must be one of: %s", ErrInvalidStatus, name, validNames())
	}
	return s, nil
}

// Marker returns the checkbox character for s.
func (s Status) Marker() rune {
	return markers[s]
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	_, ok := markers[s]
	return ok
}

// StatusFromMarker maps a checkbox character back to its status.
func StatusFromMarker(r rune) (Status, bool) {
	for s, m := range markers {
		if m == r {
			return s, true
		}
	}
	return "", false
}

func validNames() string {
	names := make([]string, 0, len(markers))
	for _, s := range Statuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
