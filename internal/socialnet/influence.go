package socialnet

import (
	"errors"
	"sort"

	"mentiongraph/internal/model"
)

// ErrNilGraph is returned when a ranking is requested for a nil graph.
var ErrNilGraph = errors.New("socialnet: nil graph")

// FollowerCounts tallies, for every followed user, how many distinct authors
// follow them. Users nobody follows are absent.
func FollowerCounts(graph FollowsGraph) map[string]int {
	counts := make(map[string]int)
	for _, follows := range graph {
		for u := range follows {
			counts[u]++
		}
	}
	return counts
}

// RankInfluence orders followed users by follower count, highest first.
// Equal counts are ordered by username.
func RankInfluence(graph FollowsGraph) ([]model.Influencer, error) {
	if graph == nil {
		return nil, ErrNilGraph
	}
	counts := FollowerCounts(graph)
	out := make([]model.Influencer, 0, len(counts))
	for u, n := range counts {
		out = append(out, model.Influencer{Username: u, Followers: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Followers != out[j].Followers {
			return out[i].Followers > out[j].Followers
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// Influencers returns usernames sorted by decreasing influence, the number of
// distinct users following them.
func Influencers(graph FollowsGraph) ([]string, error) {
	ranked, err := RankInfluence(graph)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Username
	}
	return out, nil
}
