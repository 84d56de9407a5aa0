package cmdlog

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"mentiongraph/internal/logging"
)

func TestRunLogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	logging.Setup(&buf, "info")
	defer logging.Setup(os.Stdout, "info")

	if err := Run("graph", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if err := Run("rank", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "graph_ok") || !strings.Contains(out, "rank_error") || !strings.Contains(out, "boom") {
		t.Fatalf("unexpected log output: %s", out)
	}
}
