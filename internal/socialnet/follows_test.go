package socialnet

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"mentiongraph/internal/model"
)

func msg(id int64, author, text string) model.Message {
	return model.Message{ID: id, Author: author, Text: text, Timestamp: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestGuessFollowsGraphEmpty(t *testing.T) {
	g, err := GuessFollowsGraph([]model.Message{})
	if err != nil {
		t.Fatal(err)
	}
	if len(g) != 0 {
		t.Fatalf("expected empty graph, got %v", g)
	}
}

func TestGuessFollowsGraphNil(t *testing.T) {
	if _, err := GuessFollowsGraph(nil); !errors.Is(err, ErrNilMessages) {
		t.Fatalf("expected ErrNilMessages, got %v", err)
	}
}

func TestGuessFollowsGraphNoMentions(t *testing.T) {
	g, err := GuessFollowsGraph([]model.Message{msg(1, "user1", "Hello world!")})
	if err != nil {
		t.Fatal(err)
	}
	follows, ok := g["user1"]
	if !ok {
		t.Fatalf("author missing from graph")
	}
	if len(follows) != 0 {
		t.Fatalf("expected empty follow set, got %v", follows.Sorted())
	}
}

func TestGuessFollowsGraphMentions(t *testing.T) {
	cases := []struct {
		name     string
		messages []model.Message
		want     map[string][]string
	}{
		{
			name:     "single mention",
			messages: []model.Message{msg(1, "user1", "Hello @user2!")},
			want:     map[string][]string{"user1": {"user2"}},
		},
		{
			name:     "multiple mentions",
			messages: []model.Message{msg(1, "user1", "Hi @user2 and @user3!")},
			want:     map[string][]string{"user1": {"user2", "user3"}},
		},
		{
			name: "union across messages",
			messages: []model.Message{
				msg(1, "user1", "Hi @user2!"),
				msg(2, "user1", "Hello @user3!"),
			},
			want: map[string][]string{"user1": {"user2", "user3"}},
		},
		{
			name: "case folding",
			messages: []model.Message{
				msg(1, "Alice", "hey @BOB"),
				msg(2, "ALICE", "again @bob and @Bob"),
			},
			want: map[string][]string{"alice": {"bob"}},
		},
		{
			name:     "self mention skipped",
			messages: []model.Message{msg(1, "Alice", "note to @alice and @carol")},
			want:     map[string][]string{"alice": {"carol"}},
		},
		{
			name: "mentioned users are not keys",
			messages: []model.Message{
				msg(1, "a", "@b"),
				msg(2, "c", "no one"),
			},
			want: map[string][]string{"a": {"b"}, "c": {}},
		},
		{
			name:     "malformed sigils",
			messages: []model.Message{msg(1, "a", "@ @! trailing @")},
			want:     map[string][]string{"a": {}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := GuessFollowsGraph(tc.messages)
			if err != nil {
				t.Fatal(err)
			}
			got := make(map[string][]string, len(g))
			for u, s := range g {
				got[u] = s.Sorted()
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("graph = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGuessFollowsGraphDoesNotModifyInput(t *testing.T) {
	in := []model.Message{msg(1, "UserA", "Hi @UserB")}
	orig := append([]model.Message(nil), in...)
	if _, err := GuessFollowsGraph(in); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, orig) {
		t.Fatalf("input modified: %v", in)
	}
}

func TestGuessFollowsGraphUnionOfSeparateCalls(t *testing.T) {
	m1 := msg(1, "x", "@a @b")
	m2 := msg(2, "X", "@b @c")
	g1, _ := GuessFollowsGraph([]model.Message{m1})
	g2, _ := GuessFollowsGraph([]model.Message{m2})
	both, _ := GuessFollowsGraph([]model.Message{m1, m2})

	union := make(UserSet)
	for u := range g1["x"] {
		union.Add(u)
	}
	for u := range g2["x"] {
		union.Add(u)
	}
	if !reflect.DeepEqual(both["x"].Sorted(), union.Sorted()) {
		t.Fatalf("combined %v, union %v", both["x"].Sorted(), union.Sorted())
	}
}

func TestFollowsGraphHelpers(t *testing.T) {
	g := FollowsGraph{"b": UserSet{"c": {}}, "a": UserSet{"b": {}, "c": {}}}
	if got := g.Users(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("users = %v", got)
	}
	if g.Edges() != 3 {
		t.Fatalf("edges = %d", g.Edges())
	}
	if !g["a"].Has("b") || g["a"].Has("a") {
		t.Fatalf("Has mismatch")
	}
	b, err := g.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":["b","c"],"b":["c"]}` {
		t.Fatalf("json = %s", b)
	}
}
