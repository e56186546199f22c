// Package images keeps at most one uploaded image per post as a loose file
// named {postID}{ext} under a root directory. Existence is inferred from a
// filename prefix match; concurrent writers for the same post can race
// between Remove and Save, which may leave the post without an image. Files
// are not transactional: callers replace an image only after the row change
// has committed.
package images

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Allowed lists the accepted extensions in their lowercased form.
var Allowed = []string{".jpe", ".jpg", ".jpeg", ".gif", ".png", ".bmp", ".webp"}

var contentTypes = map[string]string{
	".jpe":  "image/jpeg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

func IsAllowedExtension(filename string) bool {
	if !strings.Contains(filename, ".") {
		return false
	}
	_, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ContentType maps an allowed extension to its MIME type.
func ContentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

type Store struct {
	fs   afero.Fs
	root string
}

// New creates root on fs if it does not exist.
func New(fs afero.Fs, root string) (*Store, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("images: create %s: %w", root, err)
	}
	return &Store{fs: fs, root: root}, nil
}

// Path is the save target for an upload; it does not check existence.
func (s *Store) Path(postID int64, filename string) string {
	return filepath.Join(s.root, name(postID)+filepath.Ext(filename))
}

// Find returns the file name (relative to root) of the post's image, or ""
// when it has none.
func (s *Store) Find(postID int64) (string, error) {
	matches, err := s.glob(postID)
	if err != nil || len(matches) == 0 {
		return "", err
	}
	return matches[0], nil
}

// Remove deletes every file stored for the post.
func (s *Store) Remove(postID int64) error {
	matches, err := s.glob(postID)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := s.fs.Remove(filepath.Join(s.root, m)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("images: remove %s: %w", m, err)
		}
	}
	return nil
}

// Save writes r to Path(postID, filename). The caller is responsible for
// validating the extension and for removing a previous image first. A failed
// write leaves no file behind.
func (s *Store) Save(postID int64, filename string, r io.Reader) error {
	path := s.Path(postID, filename)
	f, err := s.fs.Create(path)
	if err != nil {
		return fmt.Errorf("images: create %s: %w", path, err)
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(path)
		return fmt.Errorf("images: write %s: %w", path, err)
	}
	return nil
}

// Open returns the stored image for postID if its extension equals ext.
func (s *Store) Open(postID int64, ext string) (afero.File, error) {
	found, err := s.Find(postID)
	if err != nil {
		return nil, err
	}
	if found == "" || !strings.EqualFold(filepath.Ext(found), ext) {
		return nil, os.ErrNotExist
	}
	return s.fs.Open(filepath.Join(s.root, found))
}

// glob matches "{id}.*" so post 1 never picks up 12.png, then sorts for a
// stable first match.
func (s *Store) glob(postID int64) ([]string, error) {
	matches, err := afero.Glob(s.fs, filepath.Join(s.root, name(postID)+".*"))
	if err != nil {
		return nil, fmt.Errorf("images: glob: %w", err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Base(m))
	}
	sort.Strings(out)
	return out, nil
}

func name(postID int64) string { return strconv.FormatInt(postID, 10) }
