package analytics

import (
	"sort"
	"time"

	"mentiongraph/internal/model"
	"mentiongraph/internal/util"
)

// Bucket summarises one UTC hour of messages.
type Bucket struct {
	Messages int
	Mentions int
	Authors  int
}

// HourlyMentions aggregates messages into per-hour buckets keyed by the start
// of the hour in UTC.
func HourlyMentions(messages []model.Message) map[time.Time]Bucket {
	buckets := make(map[time.Time]Bucket)
	authors := make(map[time.Time]map[string]struct{})
	for _, m := range messages {
		key := m.Timestamp.UTC().Truncate(time.Hour)
		b := buckets[key]
		b.Messages++
		b.Mentions += len(util.ExtractMentions(m.Text))
		if _, ok := authors[key]; !ok {
			authors[key] = make(map[string]struct{})
		}
		authors[key][util.NormalizeUsername(m.Author)] = struct{}{}
		b.Authors = len(authors[key])
		buckets[key] = b
	}
	return buckets
}

// SortedBucketKeys returns sorted hour keys.
func SortedBucketKeys(m map[time.Time]Bucket) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}
