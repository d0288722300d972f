package abs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// newTestClient starts srv-backed client with a fixed API key.
func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL+"/", WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient_MissingBaseURL(t *testing.T) {
	_, err := NewClient("", WithAPIKey("k"))
	if !errors.Is(err, ErrBaseURLRequired) {
		t.Errorf("expected ErrBaseURLRequired, got %v", err)
	}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_ = os.Unsetenv("ABS_API_KEY")

	_, err := NewClient("http://abs.local")
	if !errors.Is(err, ErrAPIKeyNotSet) {
		t.Errorf("expected ErrAPIKeyNotSet, got %v", err)
	}
}

func TestNewClient_APIKeyFromEnv(t *testing.T) {
	t.Setenv("ABS_API_KEY", "env-key")

	client, err := NewClient("http://abs.local/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.apiKey != "env-key" {
		t.Errorf("apiKey = %q, want env-key", client.apiKey)
	}
	if client.BaseURL() != "http://abs.local" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", client.BaseURL())
	}
	if client.userAgent != DefaultUserAgent {
		t.Errorf("userAgent = %q, want %q", client.userAgent, DefaultUserAgent)
	}
}

func TestClient_Headers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "custom-agent" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		_, _ = w.Write([]byte(`{"libraries":[]}`))
	})
	WithUserAgent("custom-agent")(client)

	if _, err := client.Libraries(context.Background()); err != nil {
		t.Fatalf("Libraries() error = %v", err)
	}
}

func TestLastInProgressItem(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID string
	}{
		{"first entry", `{"libraryItems":[{"id":"li_1"},{"id":"li_2"}]}`, "li_1"},
		{"empty list", `{"libraryItems":[]}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/me/items-in-progress" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			})

			item, err := client.LastInProgressItem(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantID == "" {
				if item != nil {
					t.Errorf("expected nil item, got %+v", item)
				}
				return
			}
			if item == nil || item.ID != tt.wantID {
				t.Errorf("item = %+v, want id %s", item, tt.wantID)
			}
		})
	}
}

func TestItem_QueryFlags(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/items/li_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("include") != "progress" || q.Get("expanded") != "1" || q.Get("episode") != "" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"id":"li_1","media":{"metadata":{"title":"Dune","authorName":"Frank Herbert"},"duration":100},
			"userMediaProgress":{"currentTime":42.5}}`))
	})

	item, err := client.Item(context.Background(), "li_1", ItemOptions{Include: []string{"progress"}, Expanded: true})
	if err != nil {
		t.Fatalf("Item() error = %v", err)
	}
	if item.Title() != "Dune" || item.Media.Metadata.Author() != "Frank Herbert" {
		t.Errorf("unexpected metadata %+v", item.Media.Metadata)
	}
	if item.UserMediaProgress == nil || item.UserMediaProgress.CurrentTime != 42.5 {
		t.Errorf("unexpected progress %+v", item.UserMediaProgress)
	}
}

func TestItem_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Not Found"))
	})

	_, err := client.Item(context.Background(), "missing", ItemOptions{})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var re *RemoteError
	if !errors.As(err, &re) || re.Op != "fetch item" || re.Body != "Not Found" {
		t.Errorf("unexpected remote error %+v", re)
	}
}

func TestStartSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/items/li_1/play" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		var body playRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.DeviceInfo.DeviceID != "dev-1" || body.DeviceInfo.ClientName != "Alexa Device" {
			t.Errorf("unexpected device info %+v", body.DeviceInfo)
		}
		if body.MediaPlayer != "unknown" || body.ForceTranscode || len(body.SupportedMimeTypes) != 5 {
			t.Errorf("unexpected negotiation %+v", body)
		}

		_, _ = w.Write([]byte(`{"id":"ps_1","libraryItemId":"li_1","displayTitle":"Dune","displayAuthor":"Frank Herbert",
			"duration":150,"currentTime":12,"updatedAt":1000,
			"audioTracks":[{"index":1,"startOffset":0,"duration":100,"contentUrl":"/a/1"},
			               {"index":2,"startOffset":100,"duration":50,"contentUrl":"/a/2"}],
			"chapters":[]}`))
	})

	ps, err := client.StartSession(context.Background(), "li_1", "dev-1")
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	s := ps.Session()
	if s.ID != "ps_1" || len(s.Tracks) != 2 || s.LastSyncedAt != 1000 {
		t.Errorf("unexpected session %+v", s)
	}
	if len(s.Chapters) != 1 || s.Chapters[0].End != 150 {
		t.Errorf("expected synthesized whole-book chapter, got %+v", s.Chapters)
	}
}

func TestStartSession_NoAudioTracks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"ps_1","audioTracks":[]}`))
	})

	_, err := client.StartSession(context.Background(), "li_1", "dev-1")
	if !IsNotFound(err) {
		t.Fatalf("expected not found for empty track list, got %v", err)
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode() = %d", StatusCode(err))
	}
}

func TestSyncSession(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantErr    bool
		notFound   bool
		serverSide bool
	}{
		{"ok", http.StatusOK, false, false, false},
		{"vanished session", http.StatusNotFound, true, true, false},
		{"server failure", http.StatusInternalServerError, true, false, true},
		{"forbidden", http.StatusForbidden, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/session/ps_1/sync" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				raw, _ := io.ReadAll(r.Body)
				if !strings.Contains(string(raw), `"currentTime":105`) || !strings.Contains(string(raw), `"timeListened":3.5`) {
					t.Errorf("unexpected body %s", raw)
				}
				w.WriteHeader(tt.status)
			})

			err := client.SyncSession(context.Background(), "ps_1", Progress{CurrentTime: 105, TimeListened: 3.5})
			if (err != nil) != tt.wantErr {
				t.Fatalf("SyncSession() error = %v, wantErr %v", err, tt.wantErr)
			}
			if IsNotFound(err) != tt.notFound {
				t.Errorf("IsNotFound = %v, want %v", IsNotFound(err), tt.notFound)
			}
			if IsServerError(err) != tt.serverSide {
				t.Errorf("IsServerError = %v, want %v", IsServerError(err), tt.serverSide)
			}
			if tt.status == http.StatusForbidden && !errors.Is(err, ErrRequestFailed) {
				t.Errorf("expected ErrRequestFailed, got %v", err)
			}
		})
	}
}

func TestSyncSession_EmptyID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	if err := client.SyncSession(context.Background(), "", Progress{}); !errors.Is(err, ErrSessionIDRequired) {
		t.Errorf("expected ErrSessionIDRequired, got %v", err)
	}
}

func TestCloseSession(t *testing.T) {
	status := http.StatusOK
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/session/ps_1/close" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(status)
	})

	if !client.CloseSession(context.Background(), "ps_1", Progress{CurrentTime: 10}) {
		t.Error("expected close to succeed")
	}

	status = http.StatusNotFound
	if client.CloseSession(context.Background(), "ps_1", Progress{CurrentTime: 10}) {
		t.Error("expected close to report failure on 404")
	}

	if client.CloseSession(context.Background(), "", Progress{}) {
		t.Error("expected close to report failure for empty id")
	}
}

func TestCatalogEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/libraries":
			_, _ = w.Write([]byte(`{"libraries":[{"id":"lib_1","name":"Books","mediaType":"book","settings":{"audiobooksOnly":true}}]}`))
		case "/api/libraries/lib_1/filterdata":
			_, _ = w.Write([]byte(`{"authors":[{"id":"au_1","name":"Ursula K. Le Guin"}]}`))
		case "/api/authors/au_1":
			if r.URL.Query().Get("include") != "items" {
				t.Errorf("expected include=items, got %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"id":"au_1","name":"Ursula K. Le Guin","libraryItems":[{"id":"li_9"}]}`))
		case "/api/libraries/lib_1/search":
			if r.URL.Query().Get("q") != "left hand & darkness" {
				t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
			}
			_, _ = w.Write([]byte(`{"book":[{"libraryItem":{"id":"li_9"}}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	libs, err := client.Libraries(ctx)
	if err != nil || len(libs) != 1 || !libs[0].Settings.AudiobooksOnly {
		t.Fatalf("Libraries() = %+v, %v", libs, err)
	}

	fd, err := client.LibraryFilterData(ctx, "lib_1")
	if err != nil || len(fd.Authors) != 1 {
		t.Fatalf("LibraryFilterData() = %+v, %v", fd, err)
	}

	author, err := client.Author(ctx, "au_1")
	if err != nil || len(author.LibraryItems) != 1 {
		t.Fatalf("Author() = %+v, %v", author, err)
	}

	res, err := client.Search(ctx, "lib_1", "left hand & darkness")
	if err != nil || len(res.Book) != 1 || res.Book[0].LibraryItem.ID != "li_9" {
		t.Fatalf("Search() = %+v, %v", res, err)
	}
}

func TestErrorClass(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &RemoteError{Op: "sync session", StatusCode: http.StatusNotFound}, ClassNotFound},
		{"server", &RemoteError{Op: "sync session", StatusCode: http.StatusBadGateway}, ClassServer},
		{"client", &RemoteError{Op: "sync session", StatusCode: http.StatusUnauthorized}, ClassClient},
		{"wrapped", fmt.Errorf("start: %w", &RemoteError{StatusCode: http.StatusInternalServerError}), ClassServer},
		{"transport", errors.New("dial tcp: connection refused"), "transport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorClass(tt.err); got != tt.want {
				t.Errorf("ErrorClass() = %q, want %q", got, tt.want)
			}
		})
	}
}
