package http

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, env *testEnv, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestWebSocketAttemptFlow(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env, "quizId=quiz-ws&studentId=s1")

	started := readNext(t, conn, "started")
	var payload struct {
		Title     string `json:"title"`
		Questions []struct {
			Code    string           `json:"code"`
			Options []map[string]any `json:"options"`
		} `json:"questions"`
		Session struct {
			State            string `json:"state"`
			RemainingSeconds int    `json:"remainingSeconds"`
		} `json:"session"`
	}
	if err := json.Unmarshal(started.Payload, &payload); err != nil {
		t.Fatalf("decode started: %v", err)
	}
	if payload.Title != "quiz-ws" || len(payload.Questions) != 2 {
		t.Fatalf("unexpected started payload %s", started.Payload)
	}
	if payload.Session.State != "in_progress" || payload.Session.RemainingSeconds != 600 {
		t.Fatalf("unexpected session %+v", payload.Session)
	}
	for _, opt := range payload.Questions[0].Options {
		if _, leaked := opt["correct"]; leaked {
			t.Fatalf("answer key leaked to the client: %v", opt)
		}
	}

	send(t, conn, "answer", map[string]any{"questionCode": "mc1", "response": "b"})
	state := readNext(t, conn, "state")
	if !strings.Contains(string(state.Payload), `"mc1":"b"`) {
		t.Fatalf("answer not recorded: %s", state.Payload)
	}

	send(t, conn, "navigate", map[string]any{"index": 1})
	readNext(t, conn, "state")
	send(t, conn, "answer", map[string]any{"questionCode": "tf1", "response": "false"})
	readNext(t, conn, "state")

	send(t, conn, "confirm", nil)
	readNext(t, conn, "error")

	send(t, conn, "finish", nil)
	state = readNext(t, conn, "state")
	if !strings.Contains(string(state.Payload), `"confirming_submit"`) {
		t.Fatalf("expected confirmation state: %s", state.Payload)
	}

	send(t, conn, "confirm", nil)
	finished := readNext(t, conn, "finished")
	var attempt struct {
		Status     string  `json:"status"`
		Obtained   float64 `json:"obtained"`
		Percentage float64 `json:"percentage"`
		Grade      float64 `json:"grade"`
	}
	if err := json.Unmarshal(finished.Payload, &attempt); err != nil {
		t.Fatalf("decode finished: %v", err)
	}
	if attempt.Status != "submitted" || attempt.Obtained != 2 || attempt.Percentage != 50 || attempt.Grade != 4 {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
}

func TestWebSocketCountdownExpires(t *testing.T) {
	env := newTestEnv(t)
	env.ws.interval = time.Millisecond
	conn := dial(t, env, "quizId=quiz-short&studentId=s1")
	readNext(t, conn, "started")

	ticks := 0
	for {
		msg := readNext(t, conn, "")
		if msg.Type == "tick" {
			ticks++
			continue
		}
		if msg.Type != "finished" {
			t.Fatalf("unexpected message %s", msg.Type)
		}
		if !strings.Contains(string(msg.Payload), `"status":"expired"`) {
			t.Fatalf("expected expired attempt, got %s", msg.Payload)
		}
		break
	}
	if ticks != 59 {
		t.Fatalf("expected 59 ticks before expiry, got %d", ticks)
	}
}

func TestWebSocketRejectsIneligibleStudent(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env, "quizId=quiz-ws&studentId=stranger")
	msg := readNext(t, conn, "error")
	if !strings.Contains(string(msg.Payload), "not assigned") {
		t.Fatalf("expected assignment error, got %s", msg.Payload)
	}
}

func TestWebSocketRequiresQuizAndStudent(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?quizId=quiz-ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400 response, got %+v", resp)
	}
}
