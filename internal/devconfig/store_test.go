package devconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/infrastructure/database"
	"github.com/nerrad567/gridosc/migrations"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:    filepath.Join(t.TempDir(), "gridosc.db"),
		WALMode: true,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteStore(db)
}

// storeFactories runs every test against both backends.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"file":   func(t *testing.T) Store { return NewFileStore(filepath.Join(t.TempDir(), "devices")) },
		"sqlite": func(t *testing.T) Store { return newSQLiteStore(t) },
	}
}

func TestStore_RoundTrip(t *testing.T) {
	rec := Record{
		Prefix:     "/box",
		Host:       "192.168.1.20",
		Port:       9000,
		ServerPort: 14656,
		Rotation:   device.Rotate90,
	}

	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			if err := s.Write(ctx, "m1000001", rec); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err := s.Read(ctx, "m1000001")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got != rec {
				t.Errorf("Read() = %+v, want %+v", got, rec)
			}
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			first := Defaults()
			second := Defaults()
			second.Prefix = "/other"
			second.Rotation = device.Rotate270

			if err := s.Write(ctx, "m1", first); err != nil {
				t.Fatalf("Write(first) error = %v", err)
			}
			if err := s.Write(ctx, "m1", second); err != nil {
				t.Fatalf("Write(second) error = %v", err)
			}
			got, err := s.Read(ctx, "m1")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got != second {
				t.Errorf("Read() = %+v, want %+v", got, second)
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			_, err := newStore(t).Read(context.Background(), "missing")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Read() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_RejectsInvalid(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			if err := s.Write(ctx, "../escape", Defaults()); !errors.Is(err, ErrInvalidSerial) {
				t.Errorf("Write(bad serial) error = %v, want ErrInvalidSerial", err)
			}
			bad := Defaults()
			bad.Rotation = 45
			if err := s.Write(ctx, "m1", bad); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("Write(bad rotation) error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestStore_WriteNormalizesPrefix(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			rec := Defaults()
			rec.Prefix = "box/"
			if err := s.Write(ctx, "m1", rec); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err := s.Read(ctx, "m1")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got.Prefix != "/box" {
				t.Errorf("Prefix = %q, want /box", got.Prefix)
			}
		})
	}
}

func TestFileStore_PartialFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	if err := os.WriteFile(s.Path("m1"), []byte("rotation: 180\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := s.Read(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := Defaults()
	want.Rotation = device.Rotate180
	if got != want {
		t.Errorf("Read() = %+v, want %+v", got, want)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	s := NewFileStore(t.TempDir())
	if err := os.WriteFile(s.Path("m1"), []byte("prefix: [unterminated\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := s.Read(context.Background(), "m1")
	if err == nil {
		t.Fatal("Read() error = nil, want parse error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("corrupt file should not report ErrNotFound")
	}
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	if err := s.Write(context.Background(), "m1", Defaults()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "m1.yaml" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want [m1.yaml]", names)
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Write(ctx, "m1", Defaults()); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() error = %v, want context.Canceled", err)
	}
}
