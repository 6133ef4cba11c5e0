package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/starford/quire/internal/daily"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/tasks"
)

// MarkResult describes a successful MarkTask.
type MarkResult struct {
	Path     string       `json:"path"`
	TaskText string       `json:"task_text"`
	Status   tasks.Status `json:"status"`
	Matches  int          `json:"matches"`
}

// AddResult describes a successful AddTaskToDaily.
type AddResult struct {
	Path     string `json:"path"`
	Date     string `json:"date"`
	TaskText string `json:"task_text"`
	Line     int    `json:"line"` // 1-based
	Reused   bool   `json:"reused_empty_slot"`
}

// TaskFilter selects indexed task lines. Empty fields match everything.
type TaskFilter struct {
	Status string
	Path   string
	Limit  int
}

// MarkTask sets the checkbox marker of every task line in filePath whose text is
// exactly taskText to the marker of status.
func (s *Service) MarkTask(_ context.Context, filePath, taskText, status string) (MarkResult, error) {
	if strings.TrimSpace(taskText) == "" {
		return MarkResult{}, ErrEmptyTaskText
	}
	if strings.TrimSpace(filePath) == "" {
		return MarkResult{}, ErrEmptyPath
	}
	st, err := tasks.ParseStatus(status)
	if err != nil {
		return MarkResult{}, err
	}
	abs, err := s.store.Resolve(filePath)
	if err != nil {
		return MarkResult{}, err
	}

	unlock := s.locks.lock(abs)
	defer unlock()

	data, err := s.store.Read(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return MarkResult{}, fmt.Errorf("%w at %s", ErrNoteNotFound, filePath)
	}
	if err != nil {
		return MarkResult{}, err
	}

	updated, n := tasks.MarkTask(string(data), taskText, st)
	if n == 0 {
		return MarkResult{}, fmt.Errorf("%w: '%s'", tasks.ErrTaskNotFound, taskText)
	}

	rel, err := s.store.Rel(abs)
	if err != nil {
		return MarkResult{}, err
	}
	if updated != string(data) {
		s.indexAhead(rel, []byte(updated))
		if err := s.store.Write(abs, []byte(updated)); err != nil {
			s.resync(rel)
			return MarkResult{}, err
		}
		s.notify(sse.KindTaskMarked, rel)
	}
	s.logger.Info("noteservice: task marked",
		slog.String("path", rel), slog.String("status", string(st)), slog.Int("matches", n))

	return MarkResult{Path: rel, TaskText: taskText, Status: st, Matches: n}, nil
}

// AddTaskToDaily adds "- [ ] taskText" to the Short List section of the daily note
// for dateToken.
func (s *Service) AddTaskToDaily(_ context.Context, taskText, dateToken string) (AddResult, error) {
	if strings.TrimSpace(taskText) == "" {
		return AddResult{}, ErrEmptyTaskText
	}
	if strings.ContainsAny(taskText, "\r\n") {
		return AddResult{}, ErrMultilineTask
	}
	d, err := daily.ParseDate(dateToken, s.now())
	if err != nil {
		return AddResult{}, err
	}
	date := d.Format(daily.DateLayout)
	abs, err := s.store.Resolve(daily.NotePath(d))
	if err != nil {
		return AddResult{}, err
	}

	unlock := s.locks.lock(abs)
	defer unlock()

	data, err := s.store.Read(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return AddResult{}, fmt.Errorf("%w for %s", ErrDailyNotFound, date)
	}
	if err != nil {
		return AddResult{}, err
	}

	updated, ins, err := daily.AddOpenTask(string(data), taskText)
	if err != nil {
		return AddResult{}, err
	}
	rel, err := s.store.Rel(abs)
	if err != nil {
		return AddResult{}, err
	}
	s.indexAhead(rel, []byte(updated))
	if err := s.store.Write(abs, []byte(updated)); err != nil {
		s.resync(rel)
		return AddResult{}, err
	}
	s.notify(sse.KindTaskAdded, rel)
	s.logger.Info("noteservice: task added",
		slog.String("path", rel), slog.Bool("reused", ins.Reused))

	return AddResult{
		Path:     rel,
		Date:     date,
		TaskText: taskText,
		Line:     ins.Line + 1,
		Reused:   ins.Reused,
	}, nil
}

// ListTasks returns indexed task lines across the vault.
func (s *Service) ListTasks(_ context.Context, f TaskFilter) ([]index.TaskRow, error) {
	if s.db == nil {
		return nil, ErrIndexDisabled
	}
	q := index.TaskQuery{Limit: f.Limit}
	if f.Status != "" {
		st, err := tasks.ParseStatus(f.Status)
		if err != nil {
			return nil, err
		}
		q.Status = string(st)
	}
	if strings.TrimSpace(f.Path) != "" {
		abs, err := s.store.Resolve(f.Path)
		if err != nil {
			return nil, err
		}
		if q.Path, err = s.store.Rel(abs); err != nil {
			return nil, err
		}
	}
	rows, err := s.db.ListTasks(q)
	if err != nil {
		return nil, fmt.Errorf("noteservice: list tasks: %w", err)
	}
	return rows, nil
}

// NotesByTag returns indexed notes carrying tag. The leading '#' is optional.
func (s *Service) NotesByTag(_ context.Context, tag string, limit int) ([]index.NoteRow, error) {
	if s.db == nil {
		return nil, ErrIndexDisabled
	}
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return nil, ErrEmptyTag
	}
	rows, err := s.db.NotesByTag(tag, limit)
	if err != nil {
		return nil, fmt.Errorf("noteservice: notes by tag: %w", err)
	}
	return rows, nil
}
