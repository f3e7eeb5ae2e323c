package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// DirSink writes frames as numbered PNG files into a directory.
type DirSink struct {
	dir    string
	prefix string
}

// NewDirSink creates dir if needed. Files are named <prefix>_0000.png, ...
func NewDirSink(dir, prefix string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sweep directory: %w", err)
	}
	if prefix == "" {
		prefix = "frame"
	}
	return &DirSink{dir: dir, prefix: sanitize(prefix)}, nil
}

// Save writes shot.Image and returns the file path.
func (d *DirSink) Save(shot Shot) (string, error) {
	path := filepath.Join(d.dir, fmt.Sprintf("%s_%04d.png", d.prefix, shot.Index))
	if err := imaging.Save(shot.Image, path); err != nil {
		return "", err
	}
	return path, nil
}

// sanitize keeps prefixes usable as file names ("range.1" -> "range_1").
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
