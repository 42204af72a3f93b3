package observability

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Snapshot_Reflects_Counters(t *testing.T) {
	req := require.New(t)
	stats := NewDeliveryStats(slog.Default())

	stats.MessageSent()
	stats.MessageSent()
	stats.ConflictRetried()
	stats.ReadsCleared(3)
	stats.ReadsCleared(0)
	stats.SearchRan()

	snap := stats.Snapshot()
	req.EqualValues(2, snap.MessagesSent)
	req.EqualValues(1, snap.ConflictRetries)
	req.EqualValues(3, snap.ReadsCleared)
	req.EqualValues(1, snap.SearchQueries)
	req.GreaterOrEqual(snap.UptimeSeconds, float64(0))
}
