package socialnet

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mentiongraph/internal/metrics"
	"mentiongraph/internal/model"
)

func TestGraphAndRankLeaveMetricsUntouched(t *testing.T) {
	builds := testutil.ToFloat64(metrics.GraphBuilds)
	scanned := testutil.ToFloat64(metrics.MessagesScanned)
	rankings := testutil.ToFloat64(metrics.Rankings)

	g, err := GuessFollowsGraph([]model.Message{msg(1, "a", "@b @c"), msg(2, "b", "@c")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := RankInfluence(g); err != nil {
		t.Fatal(err)
	}

	if testutil.ToFloat64(metrics.GraphBuilds) != builds ||
		testutil.ToFloat64(metrics.MessagesScanned) != scanned ||
		testutil.ToFloat64(metrics.Rankings) != rankings {
		t.Fatal("graph building or ranking changed global counters")
	}
}
