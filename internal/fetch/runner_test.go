package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deckrec/deckrec/internal/store"
)

func testArchive(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// deckServer serves one deck per requested day, failing days listed in
// fail permanently.
func deckServer(t *testing.T, requested map[string]int, fail map[string]bool) *httptest.Server {
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		day := strings.TrimPrefix(r.URL.Path, "/api/public/decklists/by_date/")
		mu.Lock()
		requested[day]++
		mu.Unlock()
		if fail[day] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `[{"id":%d,"date_creation":"%sT12:00:00+00:00","hero_code":"01001a","hero_name":"Spider-Man","slots":{"01072":3}}]`,
			hashDay(day), day)
	}))
}

func hashDay(day string) int {
	h := 0
	for _, c := range day {
		h = h*31 + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

func TestFetchDecksCheckpointsAndResumes(t *testing.T) {
	db := testArchive(t)
	requested := map[string]int{}
	srv := deckServer(t, requested, nil)
	defer srv.Close()

	r := &Runner{
		DB:     db,
		Client: testClient(srv.URL),
		Start:  "2026-01-01",
		End:    "2026-01-03",
		Log:    zerolog.Nop(),
	}

	sum, err := r.FetchDecks(context.Background())
	if err != nil {
		t.Fatalf("FetchDecks: %v", err)
	}
	if sum.DaysFetched != 3 || sum.NewDecks != 3 {
		t.Errorf("summary = %+v, want 3 days / 3 decks", sum)
	}

	// Second run must not touch the network for checkpointed days.
	sum, err = r.FetchDecks(context.Background())
	if err != nil {
		t.Fatalf("FetchDecks resume: %v", err)
	}
	if sum.DaysFetched != 0 {
		t.Errorf("resume fetched %d days, want 0", sum.DaysFetched)
	}
	for day, n := range requested {
		if n != 1 {
			t.Errorf("day %s requested %d times, want 1", day, n)
		}
	}

	n, err := db.DeckCount()
	if err != nil {
		t.Fatalf("DeckCount: %v", err)
	}
	if n != 3 {
		t.Errorf("deck count = %d, want 3", n)
	}
}

func TestFetchDecksSkipsFailedDayAndRetriesLater(t *testing.T) {
	db := testArchive(t)
	requested := map[string]int{}
	fail := map[string]bool{"2026-01-02": true}
	srv := deckServer(t, requested, fail)
	defer srv.Close()

	r := &Runner{
		DB:     db,
		Client: testClient(srv.URL),
		Start:  "2026-01-01",
		End:    "2026-01-03",
		Log:    zerolog.Nop(),
	}

	sum, err := r.FetchDecks(context.Background())
	if err != nil {
		t.Fatalf("FetchDecks: %v", err)
	}
	if sum.DaysFetched != 2 || sum.DaysSkipped != 1 {
		t.Errorf("summary = %+v, want 2 fetched / 1 skipped", sum)
	}

	// The failed day heals; a re-run retries only that day.
	fail["2026-01-02"] = false
	sum, err = r.FetchDecks(context.Background())
	if err != nil {
		t.Fatalf("FetchDecks retry: %v", err)
	}
	if sum.DaysFetched != 1 || sum.DaysSkipped != 0 {
		t.Errorf("retry summary = %+v, want 1 fetched", sum)
	}
}

func TestFetchDecksCancellation(t *testing.T) {
	db := testArchive(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{
		DB:     db,
		Client: testClient("http://127.0.0.1:0"),
		Start:  "2026-01-01",
		End:    "2026-01-03",
		Log:    zerolog.Nop(),
	}

	if _, err := r.FetchDecks(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
