// Package runlog persists one manifest per preparation run.
package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dataprep-cli/internal/pipeline"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
)

const manifestFileName = "run.json"

// ErrRunNotFound is returned when no run matches an ID or prefix.
var ErrRunNotFound = errors.New("run not found")

// Run is a persisted record of one pipeline execution.
type Run struct {
	ID         string            `json:"id"`
	Input      string            `json:"input"`
	Command    string            `json:"command"`
	Settings   map[string]any    `json:"settings,omitempty"`
	Summary    *pipeline.Summary `json:"summary,omitempty"`
	Outputs    []string          `json:"outputs,omitempty"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`

	// Not serialized: on-disk location of the run directory.
	dir string `json:"-"`
}

// New constructs an in-memory run under root. Call Save() to persist.
func New(root, command, input string) *Run {
	id := uuid.NewString()
	return &Run{
		ID:        id,
		Input:     input,
		Command:   command,
		StartedAt: time.Now(),
		dir:       filepath.Join(root, id),
	}
}

// Dir returns the run directory.
func (r *Run) Dir() string { return r.dir }

// Finish records the outcome and stamps the finish time.
func (r *Run) Finish(s *pipeline.Summary, err error) {
	r.Summary = s
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = time.Now()
}

// Duration is the wall time of the run, or zero if unfinished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Save writes run.json using atomic write.
func (r *Run) Save() error {
	if r.dir == "" {
		return errors.New("run directory not set")
	}
	if err := utils.EnsureDir(r.dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(r)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(r.dir, manifestFileName), data)
}

// Load reads the run stored in dir.
func Load(dir string) (*Run, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	r.dir = dir
	return &r, nil
}

// List loads every run under root, newest first. Unreadable entries and
// records without a valid ID are skipped.
func List(root string) ([]*Run, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var runs []*Run
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		r, err := Load(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		if _, err := uuid.Parse(r.ID); err != nil {
			continue
		}
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs, nil
}

// Find resolves a full ID or a unique prefix.
func Find(root, id string) (*Run, error) {
	if id == "" {
		return nil, fmt.Errorf("empty run id: %w", ErrRunNotFound)
	}
	runs, err := List(root)
	if err != nil {
		return nil, err
	}
	var match []*Run
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
		if strings.HasPrefix(r.ID, id) {
			match = append(match, r)
		}
	}
	switch len(match) {
	case 0:
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	case 1:
		return match[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous (%d matches)", id, len(match))
	}
}
