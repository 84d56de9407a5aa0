package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mentiongraph/internal/config"
	"mentiongraph/internal/ingest"
	"mentiongraph/internal/logging"
	"mentiongraph/internal/metrics"
	"mentiongraph/internal/store/sqlite"
	"mentiongraph/internal/xclient"
)

const cursorKey = "ingest:since_id"

// RunIngestionOnce searches for messages newer than the stored cursor, stores
// them and advances the cursor. It returns how many messages were new.
func RunIngestionOnce(ctx context.Context, db *sqlite.DB, client xclient.XClient, cfg config.IngestConfig) (int, error) {
	start := time.Now()
	metrics.IngestRuns.Inc()
	n, err := ingestOnce(ctx, db, client, cfg)
	if err != nil {
		metrics.IngestErrors.Inc()
		return 0, err
	}
	metrics.ObserveIngestDuration(start)
	return n, nil
}

func ingestOnce(ctx context.Context, db *sqlite.DB, client xclient.XClient, cfg config.IngestConfig) (int, error) {
	if cfg.Query == "" {
		return 0, errors.New("empty ingest query")
	}
	var sinceID int64
	v, err := db.LoadCursor(ctx, cursorKey)
	switch {
	case err == nil:
		if sinceID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return 0, fmt.Errorf("bad cursor %q: %w", v, err)
		}
	case !errors.Is(err, sqlite.ErrNoCursor):
		return 0, err
	}
	msgs, maxID, err := ingest.FromSearch(ctx, client, cfg.Query, cfg.Limit, sinceID)
	if err != nil {
		return 0, fmt.Errorf("search: %w", err)
	}
	n, err := db.PutMessages(ctx, msgs)
	if err != nil {
		return 0, err
	}
	if maxID > sinceID {
		if err := db.SaveCursor(ctx, cursorKey, strconv.FormatInt(maxID, 10)); err != nil {
			return n, err
		}
	}
	logging.Info("ingest_once", map[string]any{"since_id": sinceID, "max_id": maxID, "fetched": len(msgs), "stored": n})
	return n, nil
}

// RunIngestionLoop runs RunIngestionOnce on a ticker until ctx is cancelled.
func RunIngestionLoop(ctx context.Context, db *sqlite.DB, client xclient.XClient, cfg config.IngestConfig, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	run := func() {
		if _, err := RunIngestionOnce(ctx, db, client, cfg); err != nil {
			logging.Error("ingest_once_error", map[string]any{"error": err.Error()})
		}
	}
	run()
	for {
		select {
		case <-ctx.Done():
			logging.Info("ingest_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			run()
		}
	}
}
