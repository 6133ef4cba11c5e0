package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses() {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for _, bad := range []string{"completed", "Done", "", "OPEN"} {
		_, err := ParseStatus(bad)
		assert.ErrorIs(t, err, ErrInvalidStatus, bad)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, bad)
		assert.Contains(t, err.Error(), "Completed, InProgress, Forwarded, Scheduled, Open")
	}
}

func TestMarkers(t *testing.T) {
	want := map[Status]rune{
		Completed:  'x',
		InProgress: '/',
		Forwarded:  '>',
		Scheduled:  '<',
		Open:       ' ',
	}
	for s, m := range want {
		assert.Equal(t, m, s.Marker(), s)
		back, ok := StatusFromMarker(m)
		assert.True(t, ok)
		assert.Equal(t, s, back)
	}
	_, ok := StatusFromMarker('?')
	assert.False(t, ok)
}

func TestMarkTask(t *testing.T) {
	tests := []struct {
		name    string
		content string
		text    string
		status  Status
		want    string
		count   int
	}{
		{
			name:    "open to completed",
			content: "- [ ] Call MetEd",
			text:    "Call MetEd",
			status:  Completed,
			want:    "- [x] Call MetEd",
			count:   1,
		},
		{
			name:    "bare prefix does not match",
			content: "- [ ] Call MetEd",
			text:    "Call Met",
			status:  Completed,
			want:    "- [ ] Call MetEd",
			count:   0,
		},
		{
			name:    "infix of a longer word does not match",
			content: "- [ ] Call MomsDay",
			text:    "Call Mom",
			status:  Completed,
			want:    "- [ ] Call MomsDay",
			count:   0,
		},
		{
			name:    "followed by whitespace matches",
			content: "- [ ] Call Mom tonight",
			text:    "Call Mom",
			status:  InProgress,
			want:    "- [/] Call Mom tonight",
			count:   1,
		},
		{
			name:    "unrecognised marker is replaced",
			content: "- [?] Pay rent",
			text:    "Pay rent",
			status:  Forwarded,
			want:    "- [>] Pay rent",
			count:   1,
		},
		{
			name:    "every matching line counts",
			content: "# Day\n- [ ] Water plants\nnotes\n  - [x] Water plants\n- [ ] Water plantsss",
			text:    "Water plants",
			status:  Scheduled,
			want:    "# Day\n- [<] Water plants\nnotes\n  - [<] Water plants\n- [ ] Water plantsss",
			count:   2,
		},
		{
			name:    "pattern characters are literal",
			content: "- [ ] Fix (a+b)*c\n- [ ] Fix aac",
			text:    "Fix (a+b)*c",
			status:  Completed,
			want:    "- [x] Fix (a+b)*c\n- [ ] Fix aac",
			count:   1,
		},
		{
			name:    "reopen",
			content: "- [x] Buy milk\n",
			text:    "Buy milk",
			status:  Open,
			want:    "- [ ] Buy milk\n",
			count:   1,
		},
		{
			name:    "crlf line ending is kept",
			content: "- [ ] Buy milk\r\n- [ ] Eggs\r\n",
			text:    "Buy milk",
			status:  Completed,
			want:    "- [x] Buy milk\r\n- [ ] Eggs\r\n",
			count:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := MarkTask(tt.content, tt.text, tt.status)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, n)
		})
	}
}

func TestMarkTask_Idempotent(t *testing.T) {
	content := "## Short List\n- [ ] Call Mom\n- [/] Call Mom later\n"
	once, n1 := MarkTask(content, "Call Mom", Completed)
	twice, n2 := MarkTask(once, "Call Mom", Completed)

	assert.Equal(t, once, twice)
	assert.Equal(t, n1, n2)
}

func TestParse(t *testing.T) {
	content := "# Title\n- [ ] Open one\n  * [x] Done one  \n- [?] Odd\n- [ ] \nplain [ ] text\n+ [>] Later"
	got := Parse(content)

	require.Len(t, got, 4)
	assert.Equal(t, Task{Line: 2, Marker: ' ', Status: Open, Text: "Open one"}, got[0])
	assert.Equal(t, Task{Line: 3, Marker: 'x', Status: Completed, Text: "Done one"}, got[1])
	assert.Equal(t, Task{Line: 4, Marker: '?', Status: "", Text: "Odd"}, got[2])
	assert.Equal(t, Task{Line: 7, Marker: '>', Status: Forwarded, Text: "Later"}, got[3])
}
