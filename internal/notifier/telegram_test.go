package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []map[string]string
	updates  string
	onSend   func()
	failSend bool
}

func (f *fakeTelegram) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if f.failSend {
				http.Error(w, `{"ok":false}`, http.StatusBadRequest)
				return
			}
			var payload map[string]string
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			f.mu.Lock()
			f.sent = append(f.sent, payload)
			f.mu.Unlock()
			if f.onSend != nil {
				f.onSend()
			}
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			f.mu.Lock()
			body := f.updates
			f.updates = `{"ok":true,"result":[]}`
			f.mu.Unlock()
			w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	n.Client = srv.Client()
	return n
}

func TestSend(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	n := newTestNotifier(srv)
	if err := n.Send("<b>hi</b>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(fake.sent))
	}
	got := fake.sent[0]
	if got["chat_id"] != "42" || got["text"] != "<b>hi</b>" || got["parse_mode"] != "HTML" {
		t.Errorf("payload = %v", got)
	}
}

func TestSend_APIError(t *testing.T) {
	fake := &fakeTelegram{failSend: true}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	if err := newTestNotifier(srv).Send("x"); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestSendWithRetry_CancelledContext(t *testing.T) {
	fake := &fakeTelegram{failSend: true}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newTestNotifier(srv).SendWithRetry(ctx, "x", 3); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "abc", 10, []string{"abc"}},
		{"line boundary", "aaaa\nbbbb\ncc", 10, []string{"aaaa\nbbbb\n", "cc"}},
		{"long line", "abcdefghij\nk", 4, []string{"abcd", "efgh", "ij\nk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("splitMessage = %q, want %q", got, tt.want)
			}
			for _, c := range got {
				if len(c) > tt.limit {
					t.Errorf("chunk %q exceeds limit", c)
				}
			}
		})
	}
}

func TestStartPolling_RepliesToSender(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fake := &fakeTelegram{
		updates: `{"ok":true,"result":[{"update_id":7,"message":{"text":" /help ","chat":{"id":-1001}}}]}`,
		onSend:  cancel,
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	var got string
	newTestNotifier(srv).StartPolling(ctx, func(_ context.Context, cmd string) string {
		got = cmd
		return "pong"
	})

	if got != "/help" {
		t.Errorf("handler got %q, want trimmed /help", got)
	}
	if len(fake.sent) != 1 || fake.sent[0]["chat_id"] != "-1001" || fake.sent[0]["text"] != "pong" {
		t.Errorf("replies = %v", fake.sent)
	}
}
