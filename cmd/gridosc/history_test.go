package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gridosc/internal/audit"
	"github.com/nerrad567/gridosc/internal/infrastructure/config"
	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
)

func sqliteStoreConfig(dir string) config.StoreConfig {
	return config.StoreConfig{
		Backend:  config.BackendSQLite,
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "gridosc.db"), WALMode: true, BusyTimeout: 5},
	}
}

func TestPrintHistory(t *testing.T) {
	ctx := context.Background()
	log := logging.Discard()
	cfg := sqliteStoreConfig(t.TempDir())

	_, db, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	repo := audit.NewSQLiteRepository(db.DB)
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	for i, e := range []audit.Entry{
		{Serial: "midi-a", Action: audit.ActionSessionStart, Details: map[string]any{"server_port": 14000}},
		{Serial: "midi-b", Action: audit.ActionSessionStart},
		{Serial: "midi-a", Action: audit.ActionSessionEnd, Details: map[string]any{"osc_sent": 12}},
	} {
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, &e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	closeStore()

	tests := []struct {
		name      string
		serial    string
		limit     int
		wantLines int
		want      []string
		notWant   []string
	}{
		{"all", historyAll, 0, 4, []string{"midi-a", "midi-b", `{"osc_sent":12}`}, nil},
		{"one serial", "midi-a", 0, 3, []string{"session_end", `{"server_port":14000}`}, []string{"midi-b"}},
		{"limited", historyAll, 1, 3, []string{"session_end", "(1 of 3 sessions shown)"}, []string{"midi-b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := printHistory(ctx, cfg, tt.serial, tt.limit, &out, log); err != nil {
				t.Fatalf("printHistory() error = %v", err)
			}
			text := out.String()
			if got := strings.Count(text, "\n"); got != tt.wantLines {
				t.Errorf("printed %d lines, want %d:\n%s", got, tt.wantLines, text)
			}
			if !strings.HasPrefix(text, "TIME") {
				t.Errorf("missing header:\n%s", text)
			}
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("output missing %q:\n%s", w, text)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(text, w) {
					t.Errorf("output contains %q:\n%s", w, text)
				}
			}
		})
	}
}

func TestPrintHistory_NeedsSQLite(t *testing.T) {
	cfg := config.StoreConfig{Backend: config.BackendFile, Dir: t.TempDir()}
	err := printHistory(context.Background(), cfg, historyAll, 0, &bytes.Buffer{}, logging.Discard())
	if !errors.Is(err, errUsage) {
		t.Errorf("printHistory() error = %v, want errUsage", err)
	}
}
