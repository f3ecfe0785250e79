// Package journal appends submitted swaps to a JSON lines file.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one submitted swap.
type Entry struct {
	Time         time.Time `json:"time"`
	Venue        string    `json:"venue"`
	Pool         string    `json:"pool"`
	Signature    string    `json:"signature"`
	Attempts     int       `json:"attempts"`
	InputMint    string    `json:"input_mint"`
	OutputMint   string    `json:"output_mint"`
	AmountIn     uint64    `json:"amount_in"`
	EstimatedOut uint64    `json:"estimated_out"`
}

// JSONLRecorder appends entries as JSON lines.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single entry.
func (r *JSONLRecorder) Record(entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return os.ErrClosed
	}
	return r.enc.Encode(entry)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
