package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
)

func TestExpoClientSplitsBatchesAndMapsTickets(t *testing.T) {
	var (
		mu    sync.Mutex
		sizes []int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing access token header")
		}
		var batch []PushMessage
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		sizes = append(sizes, len(batch))
		mu.Unlock()

		tickets := make([]string, len(batch))
		for i, m := range batch {
			if m.Sound != "default" {
				t.Errorf("sound = %q", m.Sound)
			}
			if m.To == "ExponentPushToken[gone]" {
				tickets[i] = `{"status":"error","message":"not registered","details":{"error":"DeviceNotRegistered"}}`
			} else {
				tickets[i] = `{"status":"ok","id":"x"}`
			}
		}
		fmt.Fprintf(w, `{"data":[%s]}`, strings.Join(tickets, ","))
	}))
	defer srv.Close()

	messages := make([]PushMessage, 0, 150)
	for i := 0; i < 150; i++ {
		to := fmt.Sprintf("ExponentPushToken[%d]", i)
		if i == 120 {
			to = "ExponentPushToken[gone]"
		}
		messages = append(messages, PushMessage{To: to, Title: "t", Body: "b"})
	}

	client := NewExpoClient(srv.URL, "tok", 0)
	results, err := client.SendBatch(context.Background(), messages)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(results) != 150 {
		t.Fatalf("results = %d", len(results))
	}
	if len(sizes) != 2 || sizes[0] != 100 || sizes[1] != 50 {
		t.Fatalf("batch sizes = %v", sizes)
	}
	if results[120].OK || !results[120].DeviceGone() {
		t.Fatalf("expected device gone result, got %+v", results[120])
	}
	if !results[0].OK || results[0].DeviceGone() {
		t.Fatalf("expected ok result, got %+v", results[0])
	}
}

func TestExpoClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewExpoClient(srv.URL, "", 0).SendBatch(context.Background(), []PushMessage{{To: "a"}}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	sender := NewSMTPSender("localhost", "1025", "")
	var gotAddr, gotMsg string
	sender.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = string(msg)
		return nil
	}
	if err := sender.Send(context.Background(), "ana@example.com", "Lembrete", "Amanhã às 10:00"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "localhost:1025" {
		t.Fatalf("addr = %s", gotAddr)
	}
	for _, want := range []string{"From: noreply@clubequinze.com.br", "To: ana@example.com", "Subject: Lembrete", "charset=utf-8"} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if err := sender.Send(context.Background(), "x@example.com\r\nBcc: y", "s", "b"); err == nil {
		t.Fatal("expected header injection to be rejected")
	}
}
