//go:build !unix

package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Lock creates path exclusively; it fails with ErrLocked while another
// holder exists. Closing the returned value removes the file.
func Lock(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, err
	}
	return &excl{f: f, path: path}, nil
}

type excl struct {
	f    *os.File
	path string
}

func (l *excl) Close() error {
	_ = l.f.Close()
	return os.Remove(l.path)
}
