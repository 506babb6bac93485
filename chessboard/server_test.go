package chessboard

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("unexpected error reading body: %v", err)
	}
	return resp, string(body)
}

func TestHandleIndex(t *testing.T) {
	srv := httptest.NewServer(NewServer(DefaultConfig(), nil).Handler())
	defer srv.Close()

	resp, body := get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html content type, got %q", ct)
	}

	cfg := DefaultConfig()
	// one background rect plus one per square
	wantRects := cfg.Cols*cfg.Rows + 1
	if got := strings.Count(body, "<rect"); got != wantRects {
		t.Errorf("expected %d rects, got %d", wantRects, got)
	}

	// half the squares are dark, and the dark color appears nowhere else
	wantDark := cfg.Cols * cfg.Rows / 2
	if got := strings.Count(body, cfg.DarkColor); got != wantDark {
		t.Errorf("expected %d dark squares, got %d", wantDark, got)
	}
}

func TestHandleIndexQueryOverrides(t *testing.T) {
	srv := httptest.NewServer(NewServer(DefaultConfig(), nil).Handler())
	defer srv.Close()

	_, body := get(t, srv.URL+"/?cols=4&rows=3&square=100")

	if got := strings.Count(body, "<rect"); got != 4*3+1 {
		t.Errorf("expected %d rects, got %d", 4*3+1, got)
	}
	if !strings.Contains(body, `width="100"`) {
		t.Error("expected square size override to apply")
	}
}

func TestHandleInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cols = 8

	srv := httptest.NewServer(NewServer(cfg, nil).Handler())
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/info")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		LocalIP string `json:"local_ip"`
		Config  Config `json:"config"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("unexpected error decoding: %v", err)
	}
	if payload.LocalIP == "" {
		t.Error("expected a local IP")
	}
	if payload.Config != cfg {
		t.Errorf("expected config %+v, got %+v", cfg, payload.Config)
	}
}

func TestUnknownPath(t *testing.T) {
	srv := httptest.NewServer(NewServer(DefaultConfig(), nil).Handler())
	defer srv.Close()

	resp, _ := get(t, srv.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
