package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mamadbah2/tally/internal/config"
)

func TestSplitBody(t *testing.T) {
	t.Parallel()

	if got := SplitBody("短消息", 10); len(got) != 1 || got[0] != "短消息" {
		t.Fatalf("short body should not split, got %q", got)
	}

	got := SplitBody("一二三\n四五六\n七八", 5)
	want := []string{"一二三", "四五六", "七八"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("want=%q got=%q", want, got)
	}

	got = SplitBody("一二三四五六七", 3)
	if strings.Join(got, "|") != "一二三|四五六|七" {
		t.Fatalf("unbroken text should be cut by runes, got %q", got)
	}

	got = SplitBody(strings.Repeat("\n", 10)+"xxxxxx", 5)
	if strings.Join(got, "|") != "xxxxx|x" {
		t.Fatalf("leading newlines should not yield empty parts, got %q", got)
	}
}

func TestSendTextMessage(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v20.0/123/messages" || r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var payload struct {
			To   string `json:"to"`
			Text struct {
				Body string `json:"body"`
			} `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		bodies = append(bodies, payload.Text.Body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.WhatsAppConfig{BaseURL: srv.URL + "/", APIVersion: "v20.0", AccessToken: "secret", PhoneNumberID: "123"})
	resp, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "224600000000", Body: "Recorded 2 item(s)"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ID != "wamid.1" {
		t.Fatalf("unexpected response %+v", resp)
	}

	long := strings.Repeat(strings.Repeat("x", 100)+"\n", 50)
	resp, err = c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "224600000000", Body: long})
	if err != nil {
		t.Fatalf("send long: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("want the long body split in 2 parts got %d", len(resp.Messages))
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 3 {
		t.Fatalf("want 3 requests got %d", len(bodies))
	}

	if _, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "x", Body: "  "}); err != ErrEmptyBody {
		t.Fatalf("want ErrEmptyBody got %v", err)
	}
}

func TestSendTextMessage_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Recipient not in allowed list","code":131030}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.WhatsAppConfig{BaseURL: srv.URL, APIVersion: "v20.0", PhoneNumberID: "123"})
	_, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "x", Body: "hi"})
	if err == nil || !strings.Contains(err.Error(), "131030") || !strings.Contains(err.Error(), "allowed list") {
		t.Fatalf("want api error details got %v", err)
	}
}
