package devconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// FileStore keeps one YAML file per device in Dir.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file that holds serial's record.
func (s *FileStore) Path(serial string) string {
	return filepath.Join(s.dir, serial+".yaml")
}

// Read loads the record for serial. A missing file returns ErrNotFound.
func (s *FileStore) Read(ctx context.Context, serial string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if err := validSerial(serial); err != nil {
		return Record{}, err
	}

	data, err := os.ReadFile(s.Path(serial))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, serial)
		}
		return Record{}, fmt.Errorf("reading device config: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parsing device config %s: %w", s.Path(serial), err)
	}
	return normalize(rec)
}

// Write stores rec for serial by writing a temp file in the same directory
// and renaming it over the old one.
func (s *FileStore) Write(ctx context.Context, serial string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validSerial(serial); err != nil {
		return err
	}
	rec = rec.WithDefaults()
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding device config: %w", err)
	}

	if err := os.MkdirAll(s.dir, dirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+serial+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("syncing temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config: %w", err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		return fmt.Errorf("setting config permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(serial)); err != nil {
		return fmt.Errorf("replacing device config: %w", err)
	}
	return nil
}
