// Package fsutil provides file system helpers shared by the resolvers and the
// site orchestrator. Everything goes through an afero.Fs so the build can run
// against the OS or an in-memory tree.
package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ResolvePath turns a template or partial reference into the absolute, cleaned
// path used as its cache key. Relative references are joined onto base.
func ResolvePath(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(base, ref)
	}
	return filepath.Abs(ref)
}

// IsWithin reports whether path is dir itself or lies below it. Both paths
// must be absolute and cleaned.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// RelativeTarget maps path, which must lie below root, onto the same relative
// location below target.
func RelativeTarget(root, path, target string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &os.PathError{Op: "relative", Path: path, Err: os.ErrInvalid}
	}
	return filepath.Join(target, rel), nil
}

// CopyFile copies src to dst, creating dst's parent directories.
func CopyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyTree copies every file below src to the same relative path below dst.
func CopyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		target, err := RelativeTarget(src, path, dst)
		if err != nil {
			return err
		}

		if info.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}
		return CopyFile(fs, path, target)
	})
}

// ClearDir removes every entry of dir except the named ones. A missing dir is
// created empty.
func ClearDir(fs afero.Fs, dir string, keep ...string) error {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return err
	}
	if !exists {
		return fs.MkdirAll(dir, 0o755)
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if contains(keep, entry.Name()) {
			continue
		}
		if err := fs.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
