package device

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Replay serves recorded media from a directory in name order, wrapping around at the
// end. It stands in for a live device in demos and tests.
type Replay struct {
	dir  string
	exts []string

	mu    sync.Mutex
	files []string
	next  int
}

// NewReplay matches files by extension (".wav", ".jpg"). No extensions matches everything.
func NewReplay(dir string, exts ...string) *Replay {
	return &Replay{dir: dir, exts: exts}
}

func (r *Replay) Open(_ context.Context) error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return errors.Wrap(err, "replay")
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !r.matches(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(r.dir, e.Name()))
	}
	if len(files) == 0 {
		return errors.Errorf("replay: no media in %s", r.dir)
	}
	sort.Strings(files)

	r.mu.Lock()
	r.files, r.next = files, 0
	r.mu.Unlock()
	return nil
}

func (r *Replay) matches(name string) bool {
	if len(r.exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range r.exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func (r *Replay) Capture(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	if len(r.files) == 0 {
		r.mu.Unlock()
		return nil, errors.Wrap(ErrCaptureFailed, "replay: not open")
	}
	path := r.files[r.next]
	r.next = (r.next + 1) % len(r.files)
	r.mu.Unlock()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrCaptureFailed, "replay: %v", err)
	}
	return b, nil
}

func (r *Replay) Close() error {
	r.mu.Lock()
	r.files = nil
	r.mu.Unlock()
	return nil
}
