package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/posewall/internal/game"
	"github.com/ayusman/posewall/internal/logging"
	"github.com/ayusman/posewall/internal/pose"
	"github.com/ayusman/posewall/internal/store"
)

// fastGame is a one-life game with short walls.
func fastGame() game.Config {
	return game.Config{
		Lives:         1,
		PassThreshold: game.DefaultPassThreshold,
		BaseWall:      600 * time.Millisecond,
		MinWall:       600 * time.Millisecond,
		PassPause:     100 * time.Millisecond,
		FailPause:     100 * time.Millisecond,
	}
}

type message struct {
	Type    string          `json:"type"`
	Payload jsoniter.RawMessage `json:"payload"`
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, kind string, payload interface{}) {
	t.Helper()
	if err := conn.WriteJSON(map[string]interface{}{"type": kind, "payload": payload}); err != nil {
		t.Fatalf("WriteJSON(%s) error = %v", kind, err)
	}
}

// readUntil reads messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(message) bool) message {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("failed to decode message: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func untilEvent(kind game.EventType) func(message) bool {
	return func(m message) bool {
		if m.Type != MsgEvent {
			return false
		}
		var ev game.Event
		json.Unmarshal(m.Payload, &ev)
		return ev.Type == kind
	}
}

func decodeEvent(t *testing.T, m message) game.Event {
	t.Helper()
	var ev game.Event
	if err := json.Unmarshal(m.Payload, &ev); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	return ev
}

func TestPlay_FullGame(t *testing.T) {
	st := newTestStore(t)
	srv := New(Config{Store: st, Game: fastGame()})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, ts, "/api/play")
	send(t, conn, MsgStart, map[string]string{"player": "ana"})

	started := decodeEvent(t, readUntil(t, conn, untilEvent(game.EventRoundStarted)))
	if started.Round != 1 || started.Template == "" || len(started.Target) != pose.NumLandmarks {
		t.Fatalf("unexpected round start: %+v", started)
	}

	// Strike the target pose.
	send(t, conn, MsgFrame, map[string]interface{}{"landmarks": rawPose(t, started.Template)})

	state := readUntil(t, conn, func(m message) bool { return m.Type == MsgState })
	var snap struct {
		Phase      string `json:"phase"`
		Similarity int    `json:"similarity"`
		Tracking   bool   `json:"tracking"`
	}
	json.Unmarshal(state.Payload, &snap)
	if snap.Phase != "round" {
		t.Errorf("expected round phase, got %s", snap.Phase)
	}

	passed := decodeEvent(t, readUntil(t, conn, untilEvent(game.EventRoundPassed)))
	if passed.Score != 1 || passed.Similarity < game.DefaultPassThreshold {
		t.Fatalf("unexpected pass: %+v", passed)
	}

	// Leave the frame so the next wall fails.
	send(t, conn, MsgFrame, map[string]interface{}{"landmarks": []pose.Landmark{}})

	failed := decodeEvent(t, readUntil(t, conn, untilEvent(game.EventRoundFailed)))
	if failed.Round != 2 || failed.Lives != 0 {
		t.Fatalf("unexpected fail: %+v", failed)
	}
	over := decodeEvent(t, readUntil(t, conn, untilEvent(game.EventGameOver)))
	if over.Score != 1 {
		t.Fatalf("unexpected game over: %+v", over)
	}

	board, err := st.Sessions().Leaderboard(10)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(board) != 1 || board[0].Player != "ana" || board[0].Score != 1 || board[0].Rounds != 2 {
		t.Fatalf("unexpected leaderboard: %+v", board)
	}
	rounds, err := st.Rounds().ListBySession(board[0].ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(rounds) != 2 || !rounds[0].Passed || rounds[1].Passed {
		t.Errorf("unexpected rounds: %+v", rounds)
	}
}

func TestPlay_Messages(t *testing.T) {
	srv := New(Config{Game: fastGame()})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, ts, "/api/play")

	t.Run("unknown type", func(t *testing.T) {
		send(t, conn, "dance", nil)
		msg := readUntil(t, conn, func(m message) bool { return true })
		if msg.Type != MsgError {
			t.Errorf("expected error message, got %s", msg.Type)
		}
	})

	t.Run("invalid frame", func(t *testing.T) {
		send(t, conn, MsgFrame, "not landmarks")
		msg := readUntil(t, conn, func(m message) bool { return true })
		if msg.Type != MsgError {
			t.Errorf("expected error message, got %s", msg.Type)
		}
	})

	t.Run("stop returns to idle", func(t *testing.T) {
		send(t, conn, MsgStart, nil)
		readUntil(t, conn, untilEvent(game.EventRoundStarted))
		send(t, conn, MsgStop, nil)
		msg := readUntil(t, conn, func(m message) bool {
			if m.Type != MsgState {
				return false
			}
			var snap struct {
				Phase string `json:"phase"`
			}
			json.Unmarshal(m.Payload, &snap)
			return snap.Phase == "idle"
		})
		if msg.Type != MsgState {
			t.Errorf("expected idle state, got %s", msg.Type)
		}
	})
}

func TestPlay_DisconnectAbandons(t *testing.T) {
	st := newTestStore(t)
	srv := New(Config{Store: st})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, ts, "/api/play")
	send(t, conn, MsgStart, map[string]string{"player": "bo"})
	readUntil(t, conn, untilEvent(game.EventCountdown))
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		list, err := st.Sessions().List(10)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) == 1 && list[0].Status == store.SessionAbandoned {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected the session to be recorded as abandoned")
}

func TestLive_Hub(t *testing.T) {
	hub := NewHub(logging.Discard())
	srv := New(Config{Hub: hub})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	hub.Publish(MsgState, game.Snapshot{Phase: game.PhaseRound, Round: 4, Score: 3})

	conn := dial(t, ts, "/api/live")
	first := readUntil(t, conn, func(m message) bool { return true })
	if first.Type != MsgState || !strings.Contains(string(first.Payload), `"round":4`) {
		t.Fatalf("expected the last state on connect, got %s %s", first.Type, first.Payload)
	}

	hub.Publish(MsgEvent, game.Event{Type: game.EventRoundPassed, Round: 4})
	ev := decodeEvent(t, readUntil(t, conn, func(m message) bool { return m.Type == MsgEvent }))
	if ev.Type != game.EventRoundPassed {
		t.Errorf("unexpected event: %+v", ev)
	}

	if hub.Clients() != 1 {
		t.Errorf("expected 1 client, got %d", hub.Clients())
	}
	srv.Shutdown(context.Background())
	if hub.Clients() != 0 {
		t.Errorf("expected clients closed on shutdown, got %d", hub.Clients())
	}
}
