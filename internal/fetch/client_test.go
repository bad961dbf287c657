package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func init() { retryDelay = time.Millisecond }

func testClient(url string) *Client {
	return NewClient(url, "deckrec-test", 1000, zerolog.Nop())
}

func TestCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/public/cards/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"code":"01045","name":"Lockjaw","type_code":"ally","faction_name":"Leadership","cost":4,"deck_limit":1},
			{"code":"01072","name":"Emergency","type_code":"event","faction_name":"Basic","cost":null,"deck_limit":3},
			{"name":"no code, dropped"}
		]`))
	}))
	defer srv.Close()

	cards, err := testClient(srv.URL).Cards(context.Background())
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("len = %d, want 2", len(cards))
	}
	if cards[0].Cost == nil || *cards[0].Cost != 4 {
		t.Errorf("cost = %v", cards[0].Cost)
	}
	if cards[1].Cost != nil {
		t.Error("null cost should stay nil")
	}
}

func TestDecklistsByDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/public/decklists/by_date/2026-01-15" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id":101,"name":"Webhead","date_creation":"2026-01-15T10:00:00+00:00",
			 "hero_code":"01001a","hero_name":"Spider-Man",
			 "slots":{"01072":3},"meta":"{\"aspect\":\"justice\"}"}
		]`))
	}))
	defer srv.Close()

	decks, err := testClient(srv.URL).DecklistsByDate(context.Background(), "2026-01-15")
	if err != nil {
		t.Fatalf("DecklistsByDate: %v", err)
	}
	if len(decks) != 1 {
		t.Fatalf("len = %d, want 1", len(decks))
	}
	d := decks[0]
	if d.ID != 101 || d.HeroCode != "01001a" || d.Slots["01072"] != 3 {
		t.Errorf("deck = %+v", d)
	}
	if d.DateCreation.Year() != 2026 || d.DateCreation.Hour() != 10 {
		t.Errorf("date = %v", d.DateCreation)
	}
}

func TestDecklistsByDateEmptyDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Days with no decklists answer with an error object, not an array.
		w.Write([]byte(`{"error":"no decklists"}`))
	}))
	defer srv.Close()

	decks, err := testClient(srv.URL).DecklistsByDate(context.Background(), "2026-01-16")
	if err != nil {
		t.Fatalf("DecklistsByDate: %v", err)
	}
	if len(decks) != 0 {
		t.Errorf("len = %d, want 0", len(decks))
	}
}

func TestGetRetriesOnServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Cards(context.Background())
	if err != nil {
		t.Fatalf("Cards after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestGetGivesUpAfterRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Cards(context.Background()); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
}

func TestGetDoesNotRetryClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Cards(context.Background()); err == nil {
		t.Fatal("expected error on 404")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls)
	}
}
