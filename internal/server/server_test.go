package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/dukerupert/daywich/internal/database"
	"github.com/dukerupert/daywich/internal/logging"
	"github.com/dukerupert/daywich/internal/model"
	"github.com/dukerupert/daywich/internal/notify"
	"github.com/dukerupert/daywich/internal/push"
	"github.com/dukerupert/daywich/internal/recurrence"
	ws "github.com/dukerupert/daywich/internal/websocket"
)

func setupServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(db, opts, logging.Discard())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestHealth(t *testing.T) {
	_, ts := setupServer(t, Options{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestRepeatOptionsBoundExpansion(t *testing.T) {
	srv, ts := setupServer(t, Options{Repeat: recurrence.Options{MaxOccurrences: 4}})

	body := `{"title":"스탠드업","date":"2025-10-01","startTime":"09:00","endTime":"09:15","repeat":{"type":"daily","interval":1,"endDate":"2025-10-31"}}`
	resp, err := http.Post(ts.URL+"/api/recurring-events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	all, err := srv.EventStore().List(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("stored %d instances, want 4", len(all))
	}
}

func TestPushRoutesOnlyWhenConfigured(t *testing.T) {
	_, ts := setupServer(t, Options{})
	resp, err := http.Get(ts.URL + "/api/push/vapid-key")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status without keys = %d, want 404", resp.StatusCode)
	}

	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		t.Fatal(err)
	}
	srv, ts := setupServer(t, Options{Push: push.Config{VAPIDPublicKey: pub, VAPIDPrivateKey: priv}})
	if srv.PushService() == nil {
		t.Fatal("expected push service")
	}
	resp, err = http.Get(ts.URL + "/api/push/vapid-key")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["public_key"] != pub {
		t.Errorf("public_key = %q, want %q", body["public_key"], pub)
	}
}

func dialHub(t *testing.T, srv *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg ws.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func TestCreateBroadcastsOverWebSocket(t *testing.T) {
	srv, ts := setupServer(t, Options{})
	conn := dialHub(t, srv, ts)

	body := `{"title":"회의","date":"2025-10-04","startTime":"14:00","endTime":"15:00","repeat":{"type":"none","interval":0}}`
	resp, err := http.Post(ts.URL+"/api/events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	msg := readMessage(t, conn)
	if msg.Type != "event_created" || msg.ID == "" {
		t.Errorf("message = %+v", msg)
	}
}

func TestNotificationReachesWebSocket(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 10, 4, 13, 55, 0, 0, loc)
	srv, ts := setupServer(t, Options{
		Location: loc,
		Notify:   notify.Options{Location: loc, Now: func() time.Time { return now }},
	})

	created, err := srv.EventStore().Create(context.Background(), model.Event{
		Title: "회의", Date: "2025-10-04", StartTime: "14:00", EndTime: "15:00",
		Repeat: model.NoRepeat(), NotificationTime: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	conn := dialHub(t, srv, ts)

	if fired := srv.Checker().Check(context.Background()); len(fired) != 1 {
		t.Fatalf("fired %d, want 1", len(fired))
	}

	msg := readMessage(t, conn)
	if msg.Type != "event_notification" || msg.ID != created.ID {
		t.Fatalf("message = %+v", msg)
	}
	if got := msg.Extra["message"]; got != "10분 후 회의 일정이 시작됩니다." {
		t.Errorf("message text = %v", got)
	}
}
