package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"docparser/internal/domain"
)

// TempFile is an uploaded document written to its own directory under the
// output dir. The caller must defer Remove right after a successful NewTempFile.
type TempFile struct {
	Dir  string
	Path string
	Size int64
}

// NewTempFile writes src to {baseDir}/{uuid}/{base name of originalName}.
// The per-request directory keeps concurrent uploads of the same name apart
// while the backend still sees the original file name.
func NewTempFile(baseDir, originalName string, src io.Reader) (*TempFile, error) {
	name := filepath.Base(originalName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return nil, domain.ErrMissingFile
	}

	dir := filepath.Join(baseDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	tmp := &TempFile{Dir: dir, Path: filepath.Join(dir, name)}
	f, err := os.OpenFile(tmp.Path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	tmp.Size = n
	return tmp, nil
}

// Remove deletes the temp file and its directory. Safe to call more than once.
func (t *TempFile) Remove() error {
	if err := os.RemoveAll(t.Dir); err != nil {
		return fmt.Errorf("removing temp dir: %w", err)
	}
	return nil
}
