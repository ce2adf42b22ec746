package execution

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Journal appends fills to a JSON-lines file for audit and later analysis.
// One JSON object per line; the file is opened append-only so restarts
// never clobber history.
type Journal struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJournal opens (or creates) the journal file.
func NewJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	return &Journal{file: f, enc: json.NewEncoder(f)}, nil
}

// RecordFill appends one fill.
func (j *Journal) RecordFill(fill Fill) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(fill); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
