package soundbank

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var ErrPayloadNotFound = errors.New("payload not found")

// Source yields raw container payloads by identifier.
type Source interface {
	Payload(id string) ([]byte, error)
}

// DirSource reads <id>.wav files from a file system.
type DirSource struct {
	fsys fs.FS
}

func NewDirSource(fsys fs.FS) *DirSource {
	return &DirSource{fsys: fsys}
}

// OpenDir returns a DirSource rooted at dir on the local disk.
func OpenDir(dir string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("assets dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assets dir: %s is not a directory", dir)
	}
	return NewDirSource(os.DirFS(dir)), nil
}

func (d *DirSource) Payload(id string) ([]byte, error) {
	data, err := fs.ReadFile(d.fsys, id+".wav")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPayloadNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading payload %s: %w", id, err)
	}
	return data, nil
}

// Chain tries each source in order, moving on only when a source does not
// have the payload.
type Chain []Source

func (c Chain) Payload(id string) ([]byte, error) {
	for _, s := range c {
		data, err := s.Payload(id)
		if errors.Is(err, ErrPayloadNotFound) {
			continue
		}
		return data, err
	}
	return nil, fmt.Errorf("%w: %s", ErrPayloadNotFound, id)
}
