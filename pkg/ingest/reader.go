package ingest

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anyone-protocol/margot/pkg/model"
	"github.com/klauspost/compress/zstd"
)

// OpenReader opens name and transparently decompresses it when the extension
// says so (.zst, .gz). Any other extension is read as plain text.
func OpenReader(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", model.ErrWrongIO, name, err)
	}

	switch {
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: zstd %s: %v", model.ErrWrongIO, name, err)
		}
		return &readCloser{Reader: zr, close: func() error {
			zr.Close()
			return f.Close()
		}}, nil
	case strings.HasSuffix(name, ".gz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: gzip %s: %v", model.ErrWrongIO, name, err)
		}
		return &readCloser{Reader: gr, close: func() error {
			gr.Close()
			return f.Close()
		}}, nil
	default:
		return f, nil
	}
}

// ReadFile reads the whole (possibly compressed) file.
func ReadFile(name string) ([]byte, error) {
	r, err := OpenReader(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrWrongIO, name, err)
	}
	return data, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error {
	return r.close()
}
