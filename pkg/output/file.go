package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anyone-protocol/margot/pkg/model"
)

// FileOutput appends lines to a file. It never truncates.
type FileOutput struct {
	path string
	f    *os.File
}

// OpenAppend opens path for appending, creating the file and its parent
// directories when missing.
func OpenAppend(path string) (*FileOutput, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrWrongIO, path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrWrongIO, path, err)
	}
	return &FileOutput{path: path, f: f}, nil
}

func (o *FileOutput) Path() string {
	return o.path
}

func (o *FileOutput) WriteLines(lines ...string) error {
	for _, line := range lines {
		if _, err := o.f.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("%w: %s: %v", model.ErrWrongIO, o.path, err)
		}
	}
	return nil
}

func (o *FileOutput) Close() error {
	if err := o.f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrWrongIO, o.path, err)
	}
	return nil
}
