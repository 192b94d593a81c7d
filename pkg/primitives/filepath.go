package primitives

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/OneOfOne/xxhash"
)

// Filepath is a file system path with helpers used by the storage layer.
type Filepath string

// Hash derives a stable FileID from the cleaned absolute form of the path,
// so the same table file always maps to the same table id.
func (f Filepath) Hash() FileID {
	p := string(f)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	h := xxhash.New64()
	h.Write([]byte(filepath.Clean(p)))
	return FileID(h.Sum64())
}

func (f Filepath) String() string {
	return string(f)
}

func (f Filepath) Dir() string {
	return filepath.Dir(string(f))
}

func (f Filepath) Base() string {
	return filepath.Base(string(f))
}

func (f Filepath) Join(elem ...string) Filepath {
	parts := append([]string{string(f)}, elem...)
	return Filepath(filepath.Join(parts...))
}

func (f Filepath) Ext() string {
	return filepath.Ext(string(f))
}

// WithExt replaces the extension. The leading dot is optional.
func (f Filepath) WithExt(newExt string) Filepath {
	base := strings.TrimSuffix(string(f), f.Ext())
	if newExt != "" && !strings.HasPrefix(newExt, ".") {
		newExt = "." + newExt
	}
	return Filepath(base + newExt)
}

func (f Filepath) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}

func (f Filepath) IsEmpty() bool {
	return string(f) == ""
}

// MkdirAll creates the parent directory of the path.
func (f Filepath) MkdirAll(perm os.FileMode) error {
	return os.MkdirAll(f.Dir(), perm)
}
