package resource

import (
	"fmt"
	"path/filepath"
	"strings"

	osfs "github.com/hack-pad/hackpadfs/os"
)

// NewDirSource opens a local run directory.
func NewDirSource(dir string) (*FSSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resource: %s: %w", dir, err)
	}
	root := osfs.NewFS()
	sub, err := root.Sub(strings.TrimPrefix(filepath.ToSlash(abs), "/"))
	if err != nil {
		return nil, fmt.Errorf("resource: %s: %w", dir, err)
	}
	return &FSSource{FS: sub, Prefix: "file://" + filepath.ToSlash(abs)}, nil
}
