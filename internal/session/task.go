package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pokerjest/aria2deck/internal/downloader"
)

// Status is the daemon-reported state of a task.
type Status string

const (
	StatusActive   Status = "active"
	StatusWaiting  Status = "waiting"
	StatusPaused   Status = "paused"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
	StatusComplete Status = "complete"
	StatusRemoved  Status = "removed"
)

func (s Status) String() string {
	return string(s)
}

// IsFinished reports whether the task sits in the daemon's result history.
func (s Status) IsFinished() bool {
	return s == StatusComplete || s == StatusError || s == StatusRemoved || s == StatusStopped
}

// ParseStatus maps the daemon's status string onto Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusWaiting, StatusPaused, StatusStopped, StatusError, StatusComplete, StatusRemoved:
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// Task is a display-ready task record.
type Task struct {
	GID             string `json:"gid"`
	Status          Status `json:"status"`
	Name            string `json:"name"`
	TotalLength     int64  `json:"totalLength"`
	CompletedLength int64  `json:"completedLength"`
	UploadLength    int64  `json:"uploadLength"`
	DownloadSpeed   int64  `json:"downloadSpeed"`
	UploadSpeed     int64  `json:"uploadSpeed"`
	Connections     int64  `json:"connections"`
	Dir             string `json:"dir"`
	Path            string `json:"path"`
}

// ErrNoFiles is returned for task records without any file entry.
var ErrNoFiles = errors.New("task has no files")

// DecodeError reports a daemon value that could not be decoded.
type DecodeError struct {
	GID   string
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.GID == "" {
		return fmt.Sprintf("decode %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("task %s: decode %s %q: %v", e.GID, e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var errNegative = errors.New("negative value")

// parseCount decodes one of aria2's stringly typed counters.
func parseCount(gid, field, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, &DecodeError{GID: gid, Field: field, Value: value, Err: err}
	}
	if n < 0 {
		return 0, &DecodeError{GID: gid, Field: field, Value: value, Err: errNegative}
	}
	return n, nil
}

// dirOf returns everything before the last '/', or "" when there is none.
func dirOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// baseName strips everything up to the last '/' or '\'.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// FormatTask turns a raw daemon record into a Task.
func FormatTask(raw downloader.Status) (Task, error) {
	if len(raw.Files) == 0 {
		return Task{}, fmt.Errorf("task %s: %w", raw.Gid, ErrNoFiles)
	}

	status, err := ParseStatus(raw.Status)
	if err != nil {
		return Task{}, &DecodeError{GID: raw.Gid, Field: "status", Value: raw.Status, Err: err}
	}

	task := Task{
		GID:    raw.Gid,
		Status: status,
		Dir:    raw.Dir,
	}

	counters := []struct {
		field string
		value string
		dst   *int64
	}{
		{"totalLength", raw.TotalLength, &task.TotalLength},
		{"completedLength", raw.CompletedLength, &task.CompletedLength},
		{"uploadLength", raw.UploadLength, &task.UploadLength},
		{"downloadSpeed", raw.DownloadSpeed, &task.DownloadSpeed},
		{"uploadSpeed", raw.UploadSpeed, &task.UploadSpeed},
		{"connections", raw.Connections, &task.Connections},
	}
	for _, c := range counters {
		n, err := parseCount(raw.Gid, c.field, c.value)
		if err != nil {
			return Task{}, err
		}
		*c.dst = n
	}

	first := raw.Files[0].Path
	if raw.BitTorrent != nil && raw.BitTorrent.Info != nil {
		task.Name = raw.BitTorrent.Info.Name
	} else {
		task.Name = baseName(first)
	}

	if dirOf(first) == raw.Dir {
		task.Path = first
	} else {
		task.Path = dirOf(first)
		for _, f := range raw.Files[1:] {
			if d := dirOf(f.Path); len(d) < len(task.Path) {
				task.Path = d
			}
		}
	}

	return task, nil
}

// formatAll formats every record it can. Records that fail are skipped and their errors joined.
func formatAll(raws []downloader.Status, keep func(Status) bool) ([]Task, error) {
	tasks := make([]Task, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		task, err := FormatTask(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if keep != nil && !keep(task.Status) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, errors.Join(errs...)
}
