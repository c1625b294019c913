package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/gridosc/internal/devconfig"
	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/infrastructure/config"
	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
)

// clearEnv keeps the developer's environment out of config loading.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GRIDOSC_CONFIG", "GRIDOSC_DEVICE_PORT", "GRIDOSC_STORE_DIR", "GRIDOSC_STORE_BACKEND"} {
		t.Setenv(k, "")
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{
			name: "flags",
			args: []string{"--device", "Launchpad", "--config-dir", "/var/lib/gridosc", "-c", "/etc/gridosc.yaml"},
			want: options{devicePort: "Launchpad", configDir: "/var/lib/gridosc", configPath: "/etc/gridosc.yaml"},
		},
		{
			name: "positional device and config dir",
			args: []string{"Launchpad", "/tmp/state"},
			want: options{devicePort: "Launchpad", configDir: "/tmp/state"},
		},
		{
			name: "flag wins over positional",
			args: []string{"--device", "APC", "Launchpad"},
			want: options{devicePort: "APC"},
		},
		{
			name: "version",
			args: []string{"--version"},
			want: options{showVersion: true},
		},
		{
			name: "history for every device",
			args: []string{"--history"},
			want: options{history: historyAll},
		},
		{
			name: "history for one serial",
			args: []string{"--history=midi-launchpad", "--history-limit", "5"},
			want: options{history: "midi-launchpad", historyLimit: 5},
		},
		{
			name:    "too many positionals",
			args:    []string{"a", "b", "c"},
			wantErr: true,
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr {
				if !errors.Is(err, errUsage) {
					t.Fatalf("parseFlags() error = %v, want errUsage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := loadConfig(options{configPath: filepath.Join(t.TempDir(), "missing.yaml")})
		if !errors.Is(err, errUsage) {
			t.Errorf("loadConfig() error = %v, want errUsage", err)
		}
	})

	t.Run("default file is optional", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := loadConfig(options{configDir: dir, devicePort: "Launchpad"})
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if cfg.Store.Dir != dir {
			t.Errorf("Store.Dir = %q, want %q", cfg.Store.Dir, dir)
		}
		if cfg.Device.Port != "Launchpad" {
			t.Errorf("Device.Port = %q, want Launchpad", cfg.Device.Port)
		}
	})

	t.Run("file in config dir is read", func(t *testing.T) {
		dir := t.TempDir()
		content := "store:\n  backend: sqlite\ndevice:\n  port: APC Mini\n  channel: 3\n"
		if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		cfg, err := loadConfig(options{configDir: dir})
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if cfg.Store.Backend != config.BackendSQLite || cfg.Device.Port != "APC Mini" || cfg.Device.Channel != 3 {
			t.Errorf("config = %+v %+v", cfg.Store, cfg.Device)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("device:\n  channel: 42\n"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if _, err := loadConfig(options{configPath: path}); !errors.Is(err, errUsage) {
			t.Errorf("loadConfig() error = %v, want errUsage", err)
		}
	})
}

func TestRun_Version(t *testing.T) {
	out, err := os.CreateTemp(t.TempDir(), "stdout")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer out.Close()

	if err := run(context.Background(), []string{"--version"}, nil, out, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	data, err := os.ReadFile(out.Name())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "gridosc dev") {
		t.Errorf("version output = %q", data)
	}
}

func TestRun_NoDevice(t *testing.T) {
	clearEnv(t)
	err := run(context.Background(), []string{"--config-dir", t.TempDir()}, nil, nil, io.Discard)
	if !errors.Is(err, errUsage) {
		t.Errorf("run() error = %v, want errUsage", err)
	}
}

func TestOpenStore(t *testing.T) {
	log := logging.Discard()
	rec := devconfig.Record{Prefix: "/box", Host: "10.0.0.2", Port: 9000, ServerPort: 12002, Rotation: device.Rotate90}

	tests := []struct {
		name string
		cfg  func(dir string) config.StoreConfig
	}{
		{
			name: "file",
			cfg:  func(dir string) config.StoreConfig { return config.StoreConfig{Backend: config.BackendFile, Dir: filepath.Join(dir, "devices")} },
		},
		{
			name: "sqlite",
			cfg: func(dir string) config.StoreConfig {
				return config.StoreConfig{
					Backend:  config.BackendSQLite,
					Database: config.DatabaseConfig{Path: filepath.Join(dir, "gridosc.db"), WALMode: true, BusyTimeout: 5},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, db, closeStore, err := openStore(ctx, tt.cfg(t.TempDir()), log)
			if err != nil {
				t.Fatalf("openStore() error = %v", err)
			}
			defer closeStore()

			if (db != nil) != (tt.name == "sqlite") {
				t.Errorf("openStore() db = %v for backend %s", db, tt.name)
			}

			if err := store.Write(ctx, "m0000042", rec); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err := store.Read(ctx, "m0000042")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got != rec {
				t.Errorf("Read() = %+v, want %+v", got, rec)
			}
		})
	}
}
