package filestore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
)

var errInvalidPath = errors.New("invalid media path")

// DiskStore keeps media objects under a root directory, served at urlPrefix.
type DiskStore struct {
	root      string
	urlPrefix string
}

var _ core.FileStore = (*DiskStore)(nil)

func NewDiskStore(conf *core.Config) (*DiskStore, error) {
	root := conf.Media.Root
	if !filepath.IsAbs(root) {
		root = filepath.Join(conf.WorkDir, root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media root")
	}
	return &DiskStore{root: root, urlPrefix: strings.TrimSuffix(conf.Media.URLPrefix, "/")}, nil
}

// Root is the directory objects are stored in.
func (s *DiskStore) Root() string { return s.root }

// fullPath maps a slash separated object path into the root, refusing anything that escapes it.
func (s *DiskStore) fullPath(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" || strings.Contains(p, "..") {
		return "", errors.Wrap(errInvalidPath, p)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *DiskStore) Put(ctx context.Context, p string, r io.Reader) error {
	full, err := s.fullPath(p)
	if err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrap(err, "creating media dir")
	}

	// write aside then rename, so readers never see partial files
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing media object")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing media object")
	}
	if err = os.Rename(tmp.Name(), full); err != nil {
		return errors.Wrap(err, "moving media object")
	}
	return nil
}

// Delete removes the objects; missing ones are ignored.
func (s *DiskStore) Delete(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		full, err := s.fullPath(p)
		if err != nil {
			return err
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = os.Remove(full); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing %s", p)
		}
	}
	return nil
}

func (s *DiskStore) Exists(_ context.Context, p string) (bool, error) {
	full, err := s.fullPath(p)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "checking %s", p)
	}
	return !fi.IsDir(), nil
}

func (s *DiskStore) URL(p string) string {
	return s.urlPrefix + "/" + strings.TrimPrefix(path.Clean("/"+p), "/")
}
