package pushover_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"micrecorder/internal/domain"
	"micrecorder/internal/infra/pushover"
)

type capturedMessages struct {
	mu    sync.Mutex
	forms []url.Values
}

func (c *capturedMessages) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.forms = append(c.forms, r.PostForm)
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

var lowChannel = domain.Channel{ID: "recorder", Name: "Recording", Importance: domain.ImportanceLow}

func TestClient_ShowRecordingNotification(t *testing.T) {
	msgs := &capturedMessages{}
	server := httptest.NewServer(msgs.handler(http.StatusOK))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", "http://recorder.local:8080/", "secret", server.URL)
	ctx := context.Background()

	if err := client.EnsureChannel(ctx, lowChannel); err != nil {
		t.Fatalf("EnsureChannel error: %v", err)
	}

	err := client.Show(ctx, domain.Notification{
		ID:        1001,
		ChannelID: "recorder",
		Title:     "Mic Recorder",
		Text:      "Recording in progress",
		Ongoing:   true,
		Actions:   []domain.NotificationAction{{Label: "Stop", Command: domain.StopCommand()}},
	})
	if err != nil {
		t.Fatalf("Show error: %v", err)
	}

	if len(msgs.forms) != 1 {
		t.Fatalf("messages: got %d, want 1", len(msgs.forms))
	}
	form := msgs.forms[0]

	checks := map[string]string{
		"token":     "app-token",
		"user":      "user-key",
		"title":     "Mic Recorder",
		"message":   "Recording in progress",
		"priority":  "-1",
		"url":       "http://recorder.local:8080/stop?token=secret",
		"url_title": "Stop",
	}
	for key, want := range checks {
		if got := form.Get(key); got != want {
			t.Errorf("%s: got %q, want %q", key, got, want)
		}
	}
}

func TestClient_ShowWithoutChannelFails(t *testing.T) {
	msgs := &capturedMessages{}
	server := httptest.NewServer(msgs.handler(http.StatusOK))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", "", "", server.URL)

	err := client.Show(context.Background(), domain.Notification{ChannelID: "missing", Text: "hi"})
	if err == nil {
		t.Fatal("expected error for unregistered channel")
	}
	if len(msgs.forms) != 0 {
		t.Errorf("messages: got %d, want 0", len(msgs.forms))
	}
}

func TestClient_EnsureChannelIsIdempotent(t *testing.T) {
	msgs := &capturedMessages{}
	server := httptest.NewServer(msgs.handler(http.StatusOK))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", "", "", server.URL)
	ctx := context.Background()

	high := lowChannel
	high.Importance = domain.ImportanceHigh

	_ = client.EnsureChannel(ctx, lowChannel)
	_ = client.EnsureChannel(ctx, high)

	if err := client.Show(ctx, domain.Notification{ChannelID: "recorder", Text: "hi"}); err != nil {
		t.Fatalf("Show error: %v", err)
	}
	if got := msgs.forms[0].Get("priority"); got != "-1" {
		t.Errorf("priority: got %s, want -1 (first registration wins)", got)
	}
	if msgs.forms[0].Get("url") != "" {
		t.Error("no action url expected without a base URL")
	}
}

func TestClient_RejectedMessageIsNotRetried(t *testing.T) {
	msgs := &capturedMessages{}
	server := httptest.NewServer(msgs.handler(http.StatusBadRequest))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", "", "", server.URL)
	ctx := context.Background()
	_ = client.EnsureChannel(ctx, lowChannel)

	if err := client.Show(ctx, domain.Notification{ChannelID: "recorder", Text: "hi"}); err == nil {
		t.Fatal("expected error")
	}
	if len(msgs.forms) != 1 {
		t.Errorf("attempts: got %d, want 1", len(msgs.forms))
	}
}

func TestClient_DisabledWithoutCredentials(t *testing.T) {
	client := pushover.NewClient("", "", "", "")

	if err := client.Show(context.Background(), domain.Notification{ChannelID: "any"}); err != nil {
		t.Errorf("Show error: %v", err)
	}
}
