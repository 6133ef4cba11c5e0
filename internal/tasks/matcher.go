package tasks

import (
	"regexp"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

// ErrTaskNotFound is returned when no line carries the requested task text.
var ErrTaskNotFound = apperr.New(apperr.ErrNotFound, "task not found")

// listItemRe recognises indented list items with a checkbox for indexing.
var listItemRe = regexp.MustCompile(`^\s*[-*+]\s+\[([^\]])\]\s+(.*\S)\s*$`)

// Task is a checkbox line found in a note.
type Task struct {
	Line   int    // 1-based line number
	Marker rune   // character inside the brackets
	Status Status // empty when the marker is not canonical
	Text   string
}

// taskPattern matches "[c]" + whitespace + the literal text, followed by whitespace or
// end of line. The text must be a whole trailing token, so "Call Met" does not match
// "[ ] Call MetEd". Submatch 1 is the marker.
func taskPattern(taskText string) *regexp.Regexp {
	return regexp.MustCompile(`\[([^\]])\]\s+` + regexp.QuoteMeta(taskText) + `(?:\s|$)`)
}

// MarkTask sets the marker of every task line carrying taskText to status. It returns the
// rewritten content and the number of lines changed. Everything but the marker character is
// preserved verbatim; lines are split and rejoined on "\n" only.
func MarkTask(content, taskText string, status Status) (string, int) {
	re := taskPattern(taskText)
	marker := string(status.Marker())

	lines := strings.Split(content, "\n")
	matches := 0
	for i, line := range lines {
		locs := re.FindAllStringSubmatchIndex(line, -1)
		if len(locs) == 0 {
			continue
		}
		var b strings.Builder
		last := 0
		for _, loc := range locs {
			b.WriteString(line[last:loc[2]])
			b.WriteString(marker)
			last = loc[3]
		}
		b.WriteString(line[last:])
		lines[i] = b.String()
		matches++
	}
	return strings.Join(lines, "\n"), matches
}

// Parse returns every list-item task line in content.
func Parse(content string) []Task {
	var out []Task
	for i, line := range strings.Split(content, "\n") {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		marker := []rune(m[1])[0]
		status, _ := StatusFromMarker(marker)
		out = append(out, Task{
			Line:   i + 1,
			Marker: marker,
			Status: status,
			Text:   m[2],
		})
	}
	return out
}
