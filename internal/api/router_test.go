package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mentiongraph/internal/metrics"
	"mentiongraph/internal/model"
	"mentiongraph/internal/store/sqlite"
)

func seededStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err = db.PutMessages(context.Background(), []model.Message{
		{ID: 1, Author: "user1", Text: "Hi @user2 and @user3!", Timestamp: now},
		{ID: 2, Author: "User2", Text: "@USER3 hello", Timestamp: now.Add(time.Minute)},
		{ID: 3, Author: "user4", Text: "nothing here", Timestamp: now.Add(2 * time.Minute)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, NewRouter(seededStore(t)), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGraphEndpoint(t *testing.T) {
	builds := testutil.ToFloat64(metrics.GraphBuilds)
	edges := testutil.ToFloat64(metrics.GraphEdges)
	rec := get(t, NewRouter(seededStore(t)), "/graph")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		"user1": {"user2", "user3"},
		"user2": {"user3"},
		"user4": {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("graph = %v, want %v", got, want)
	}
	if testutil.ToFloat64(metrics.GraphBuilds) != builds+1 || testutil.ToFloat64(metrics.GraphEdges) != edges+3 {
		t.Fatal("graph build not recorded in metrics")
	}
}

func TestInfluencersEndpoint(t *testing.T) {
	h := NewRouter(seededStore(t))
	rec := get(t, h, "/influencers")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var got []model.Influencer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := []model.Influencer{{Username: "user3", Followers: 2}, {Username: "user2", Followers: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("influencers = %v", got)
	}

	rec = get(t, h, "/influencers?top=1")
	got = nil
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 || got[0].Username != "user3" {
		t.Fatalf("top=1 = %v", got)
	}

	rec = get(t, h, "/influencers?top=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var e ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e.Error.Code != ErrCodeBadRequest {
		t.Fatalf("error body = %s", rec.Body.String())
	}
}

func TestLatestSnapshotEndpoint(t *testing.T) {
	db := seededStore(t)
	h := NewRouter(db)
	if rec := get(t, h, "/influencers/latest"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	snap, err := db.SaveSnapshot(context.Background(), time.Now(), []model.Influencer{{Username: "user3", Followers: 2}})
	if err != nil {
		t.Fatal(err)
	}
	rec := get(t, h, "/influencers/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got snapshotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != snap.RunID.String() || len(got.Entries) != 1 {
		t.Fatalf("snapshot = %+v", got)
	}
}

type failingStore struct{}

func (failingStore) AllMessages(ctx context.Context) ([]model.Message, error) {
	return nil, errors.New("disk gone")
}

func (failingStore) LatestSnapshot(ctx context.Context) (sqlite.Snapshot, error) {
	return sqlite.Snapshot{}, errors.New("disk gone")
}

func TestStoreFailure(t *testing.T) {
	h := NewRouter(failingStore{})
	for _, path := range []string{"/graph", "/influencers", "/influencers/latest"} {
		if rec := get(t, h, path); rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, rec.Code)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	if rec := get(t, NewRouter(seededStore(t)), "/metrics"); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}
