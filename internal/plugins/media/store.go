package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrExists is returned by WriteNew when the target path is already taken.
var ErrExists = errors.New("media file already exists")

// Store is the local media tree. Every path it accepts or returns is
// relative to the root and uses forward slashes.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// Abs returns the filesystem path for a storage-relative path. Relative
// paths that would climb out of the root are clamped to it.
func (s *Store) Abs(rel string) string {
	clean := path.Clean("/" + rel)
	return filepath.Join(s.root, filepath.FromSlash(clean))
}

// WriteNew creates rel with data, creating parent directories. It never
// overwrites: an existing file yields ErrExists.
func (s *Store) WriteNew(rel string, data []byte) error {
	abs := s.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", rel, err)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s: %w", rel, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", rel, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether rel names an existing regular file.
func (s *Store) Exists(rel string) bool {
	if rel == "" {
		return false
	}
	info, err := os.Stat(s.Abs(rel))
	return err == nil && info.Mode().IsRegular()
}

// AnyExists reports whether any of the paths is already on disk.
func (s *Store) AnyExists(rels ...string) bool {
	for _, r := range rels {
		if s.Exists(r) {
			return true
		}
	}
	return false
}

// Remove deletes rel. A missing file is not an error.
func (s *Store) Remove(rel string) error {
	err := os.Remove(s.Abs(rel))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", rel, err)
	}
	return nil
}

// FindByToken looks in dir for a file belonging to the token under the given
// prefix. An exact "<prefix>_<token>." match wins; otherwise the first name
// (in lexical order) that contains the token is returned. Returns "" when
// the directory is missing or nothing matches.
func (s *Store) FindByToken(dir, prefix, token string) string {
	entries, err := os.ReadDir(s.Abs(dir))
	if err != nil {
		return ""
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	exact := prefix + "_" + token + "."
	for _, n := range names {
		if strings.HasPrefix(n, exact) {
			return path.Join(dir, n)
		}
	}
	for _, n := range names {
		if strings.Contains(n, token) {
			return path.Join(dir, n)
		}
	}
	return ""
}

// StoredFile is one file found while walking the tree.
type StoredFile struct {
	Path    string
	ModTime time.Time
}

// Walk lists every regular file below dir (storage-relative). A missing dir
// yields no files.
func (s *Store) Walk(dir string) ([]StoredFile, error) {
	base := s.Abs(dir)
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var files []StoredFile
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		files = append(files, StoredFile{Path: filepath.ToSlash(rel), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}
