// Package fsutil contains utilities for working with the file system.
package fsutil

import (
	"bufio"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileExists returns whether the file or directory exists or an error if something went wrong in the filesystem.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to FileExists(%q)", path)
}

// ExpandPath replaces a leading "~" or "~user" by the user's home directory. Other paths are
// returned unchanged.
//
// It returns an error if the user is unknown (e.g.: `~unknown/...`).
func ExpandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	var userName string
	if path != "~" && !strings.HasPrefix(path, "~/") {
		sepIdx := strings.IndexRune(path, '/')
		if sepIdx == -1 {
			userName = path[1:]
		} else {
			userName = path[1:sepIdx]
		}
	}
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to lookup home directory for user in path %q", path)
	}
	return filepath.Join(usr.HomeDir, path[1+len(userName):]), nil
}

// EnsureDir expands dir and creates it, with its parents, if it doesn't exist yet.
// It returns the expanded path.
func EnsureDir(dir string) (string, error) {
	dir, err := ExpandPath(dir)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory %q", dir)
	}
	return dir, nil
}

// Open expands path and opens it for reading.
func Open(path string) (*os.File, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	return f, nil
}

// WriteFile expands path and writes it with the contents generated by writeFn.
//
// Contents are written to a temporary file in the same directory, which is renamed to path only
// if writeFn succeeds: on error no partial file is left behind, and a previous file at path is
// kept intact.
func WriteFile(path string, writeFn func(w io.Writer) error) error {
	path, err := ExpandPath(path)
	if err != nil {
		return err
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file for %q", path)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()
	buf := bufio.NewWriter(tmp)
	if err = writeFn(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write %q", path)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q", tmpPath)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "failed to rename %q to %q", tmpPath, path)
	}
	return nil
}
