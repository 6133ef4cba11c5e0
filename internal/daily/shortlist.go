package daily

import (
	"regexp"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

// SectionHeader is matched case-insensitively anywhere in a line.
const SectionHeader = "Short List"

// Short List conditions.
var (
	ErrSectionNotFound  = apperr.New(apperr.ErrNotFound, "'Short List' section not found in daily note")
	ErrMalformedSection = apperr.New(apperr.ErrMalformedSection, "task list section is malformed or missing blank line separator")
	ErrNoTasksInSection = apperr.New(apperr.ErrNotFound, "no tasks found in Short List section")
)

var emptyTaskRe = regexp.MustCompile(`^-\s+\[\s*\]\s*$`)

// Insertion describes how AddOpenTask changed the note.
type Insertion struct {
	Line   int  // 0-based index of the written task line
	Reused bool // an empty "- [ ]" placeholder was filled instead of inserting a line
}

type scanState int

const (
	beforeList scanState = iota // header seen, no task line yet
	inList                      // at least one task line seen
	closed                      // list terminated
)

type lineKind int

const (
	kindHeader4 lineKind = iota
	kindTask
	kindEmptyTask
	kindBlank
	kindOther
)

func classify(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "####"):
		return kindHeader4
	case strings.HasPrefix(trimmed, "- ["):
		if emptyTaskRe.MatchString(trimmed) {
			return kindEmptyTask
		}
		return kindTask
	case trimmed == "":
		return kindBlank
	default:
		return kindOther
	}
}

// section is the result of scanning past the Short List header.
type section struct {
	header     int
	lastTask   int
	firstEmpty int
}

func findSection(lines []string) (section, error) {
	sec := section{header: -1, lastTask: -1, firstEmpty: -1}
	needle := strings.ToLower(SectionHeader)
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			sec.header = i
			break
		}
	}
	if sec.header < 0 {
		return sec, ErrSectionNotFound
	}

	state := beforeList
	for i := sec.header + 1; i < len(lines) && state != closed; i++ {
		switch classify(lines[i]) {
		case kindHeader4:
			return sec, ErrMalformedSection
		case kindEmptyTask:
			if sec.firstEmpty < 0 {
				sec.firstEmpty = i
			}
			sec.lastTask = i
			state = inList
		case kindTask:
			sec.lastTask = i
			state = inList
		case kindBlank, kindOther:
			if state == inList {
				state = closed
			}
		}
	}

	if sec.lastTask < 0 {
		return sec, ErrNoTasksInSection
	}
	return sec, nil
}

// AddOpenTask adds "- [ ] taskText" to the Short List section of a daily note. The first
// empty placeholder task is reused when present; otherwise the line is inserted right after
// the last task of the list. All other lines are returned untouched.
func AddOpenTask(content, taskText string) (string, Insertion, error) {
	lines := strings.Split(content, "\n")
	sec, err := findSection(lines)
	if err != nil {
		return "", Insertion{}, err
	}

	task := "- [ ] " + taskText
	if sec.firstEmpty >= 0 {
		lines[sec.firstEmpty] = task
		return strings.Join(lines, "\n"), Insertion{Line: sec.firstEmpty, Reused: true}, nil
	}

	at := sec.lastTask + 1
	lines = append(lines, "")
	copy(lines[at+1:], lines[at:])
	lines[at] = task
	return strings.Join(lines, "\n"), Insertion{Line: at}, nil
}
