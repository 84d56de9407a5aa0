package socialnet

import (
	"encoding/json"
	"errors"
	"sort"

	"mentiongraph/internal/model"
	"mentiongraph/internal/util"
)

// ErrNilMessages is returned when GuessFollowsGraph is given a nil slice.
var ErrNilMessages = errors.New("socialnet: nil messages")

// UserSet is a set of lowercase usernames.
type UserSet map[string]struct{}

// Add inserts u into the set.
func (s UserSet) Add(u string) { s[u] = struct{}{} }

// Has reports whether u is in the set.
func (s UserSet) Has(u string) bool {
	_, ok := s[u]
	return ok
}

// Sorted returns the members in lexicographic order.
func (s UserSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// FollowsGraph maps an author to the users they are inferred to follow.
type FollowsGraph map[string]UserSet

// Users returns every author key in lexicographic order.
func (g FollowsGraph) Users() []string {
	out := make([]string, 0, len(g))
	for u := range g {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Edges returns the total number of follow edges.
func (g FollowsGraph) Edges() int {
	n := 0
	for _, s := range g {
		n += len(s)
	}
	return n
}

// MarshalJSON renders each set as a sorted array so output is stable.
func (g FollowsGraph) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(g))
	for u, s := range g {
		out[u] = s.Sorted()
	}
	return json.Marshal(out)
}

// GuessFollowsGraph infers who follows whom from the @-mentions in messages.
// Every author gets a key, even without mentions. Usernames are lowercased and
// nobody follows themselves. messages is not modified.
func GuessFollowsGraph(messages []model.Message) (FollowsGraph, error) {
	if messages == nil {
		return nil, ErrNilMessages
	}
	graph := make(FollowsGraph)
	for _, m := range messages {
		author := util.NormalizeUsername(m.Author)
		follows, ok := graph[author]
		if !ok {
			follows = make(UserSet)
			graph[author] = follows
		}
		for _, u := range util.ExtractMentions(m.Text) {
			if u == author {
				continue
			}
			follows.Add(u)
		}
	}
	return graph, nil
}
