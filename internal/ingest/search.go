package ingest

import (
	"context"
	"sort"

	"mentiongraph/internal/model"
	"mentiongraph/internal/xclient"
)

// FromSearch runs a recent search for messages newer than sinceID and returns
// them oldest first, together with the highest ID seen (sinceID if none).
func FromSearch(ctx context.Context, client xclient.XClient, query string, limit int, sinceID int64) ([]model.Message, int64, error) {
	msgs, err := client.SearchRecentMessages(ctx, query, limit, sinceID)
	if err != nil {
		return nil, sinceID, err
	}
	maxID := sinceID
	kept := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID <= sinceID {
			continue
		}
		kept = append(kept, m)
		if m.ID > maxID {
			maxID = m.ID
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if !kept[i].Timestamp.Equal(kept[j].Timestamp) {
			return kept[i].Timestamp.Before(kept[j].Timestamp)
		}
		return kept[i].ID < kept[j].ID
	})
	return kept, maxID, nil
}
