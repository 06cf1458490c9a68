package todos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListCachesFirstFetch(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"title":"first","completed":false,"userId":1},{"id":2,"title":"second","completed":true,"userId":1}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	items, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != 1 || items[0].Title != "first" || items[1].Completed != true {
		t.Fatalf("unexpected items: %+v", items)
	}

	if _, err := c.List(context.Background()); err != nil {
		t.Fatalf("second List: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", hits)
	}
}

func TestListErrorIsNotCached(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"id":1,"title":"a","completed":false,"userId":1}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.List(context.Background()); err == nil {
		t.Fatal("expected error from failing upstream")
	}

	fail = false
	items, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List after recovery: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/todos/5":
			w.Write([]byte(`{"id":5,"title":"buy milk","completed":false,"userId":2}`))
		case "/todos/999":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/todos", time.Second)

	item, err := c.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("Get(5): %v", err)
	}
	if item.ID != 5 || item.Title != "buy milk" || item.UserID != 2 {
		t.Fatalf("unexpected item: %+v", item)
	}

	if _, err := c.Get(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(999): expected ErrNotFound, got %v", err)
	}

	if _, err := c.Get(context.Background(), 7); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(7): expected generic error on 500, got %v", err)
	}
}
