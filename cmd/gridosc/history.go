package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nerrad567/gridosc/internal/audit"
	"github.com/nerrad567/gridosc/internal/infrastructure/config"
	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
)

// historyAll is the --history value used when no serial is given.
const historyAll = "*"

// printHistory lists recorded sessions, newest first.
func printHistory(ctx context.Context, cfg config.StoreConfig, serial string, limit int, w io.Writer, log *logging.Logger) error {
	if cfg.Backend != config.BackendSQLite {
		return fmt.Errorf("%w: session history needs store.backend %q", errUsage, config.BackendSQLite)
	}

	_, db, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	defer closeStore()

	filter := audit.Filter{Limit: limit}
	if serial != historyAll {
		filter.Serial = serial
	}
	res, err := audit.NewSQLiteRepository(db.DB).List(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing session history: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSERIAL\tACTION\tDETAILS")
	for _, e := range res.Entries {
		details := ""
		if len(e.Details) > 0 {
			b, err := json.Marshal(e.Details)
			if err != nil {
				return fmt.Errorf("formatting details of %s: %w", e.ID, err)
			}
			details = string(b)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.Serial, e.Action, details)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if res.Total > len(res.Entries) {
		fmt.Fprintf(w, "(%d of %d sessions shown)\n", len(res.Entries), res.Total)
	}
	return nil
}
