package server

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/posewall/internal/game"
	"github.com/ayusman/posewall/internal/pose"
	"github.com/ayusman/posewall/internal/scoring"
	"github.com/ayusman/posewall/internal/session"
	"github.com/ayusman/posewall/internal/store"
	"github.com/ayusman/posewall/internal/target"
)

// TickInterval is how often a play connection advances its game and pushes
// state to the browser.
const TickInterval = 100 * time.Millisecond

// PlayConfig configures a PlayHandler.
type PlayConfig struct {
	// Context ends every open connection when cancelled.
	Context   context.Context
	Store     *store.Store
	Catalog   *target.Catalog
	Scorer    *scoring.Scorer
	Game      game.Config
	FrameRate float64
	Log       logrus.FieldLogger
}

// PlayHandler runs one game per websocket connection. The browser runs the
// pose estimator and sends landmark frames; the server owns the game.
type PlayHandler struct {
	config PlayConfig
}

// NewPlayHandler creates a PlayHandler.
func NewPlayHandler(config PlayConfig) *PlayHandler {
	if config.Context == nil {
		config.Context = context.Background()
	}
	return &PlayHandler{config: config}
}

type startPayload struct {
	Player string `json:"player"`
}

type framePayload struct {
	Landmarks []pose.Landmark `json:"landmarks"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// ServeHTTP upgrades the connection and plays until the client leaves.
func (h *PlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.config.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	log := h.config.Log.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"remote":     r.RemoteAddr,
	})

	g := game.New(h.config.Game, h.config.Scorer, target.NewGenerator(h.config.Catalog, nil))
	p := &player{
		conn:    conn,
		session: session.New(g, h.config.Store, log),
		limiter: rate.NewLimiter(rate.Limit(h.config.FrameRate), int(math.Max(1, math.Ceil(h.config.FrameRate)))),
		log:     log,
	}
	defer p.session.Stop()

	done := make(chan struct{})
	defer close(done)

	in := make(chan Envelope)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var msg Envelope
			if err := json.Unmarshal(data, &msg); err != nil {
				msg = Envelope{}
			}
			select {
			case in <- msg:
			case <-done:
				return
			}
		}
	}()

	log.Debug("player connected")
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.config.Context.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("player read failed")
			}
			log.WithField("dropped_frames", p.dropped).Debug("player disconnected")
			return
		case msg := <-in:
			if err := p.handle(msg, time.Now()); err != nil {
				log.WithError(err).Debug("player write failed")
				return
			}
		case now := <-ticker.C:
			if err := p.tick(now, false); err != nil {
				log.WithError(err).Debug("player write failed")
				return
			}
		}
	}
}

// player is the state of one play connection. It is only touched by the
// connection's main goroutine.
type player struct {
	conn    *websocket.Conn
	session *session.Session
	limiter *rate.Limiter
	log     logrus.FieldLogger
	dropped int
}

func (p *player) handle(msg Envelope, now time.Time) error {
	switch msg.Type {
	case MsgStart:
		var start startPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &start); err != nil {
				return p.send(MsgError, errorPayload{Error: "invalid start payload"})
			}
		}
		if len(start.Player) > 64 {
			start.Player = start.Player[:64]
		}
		p.session.Start(now, start.Player)
		return p.tick(now, true)

	case MsgFrame:
		if !p.limiter.AllowN(now, 1) {
			p.dropped++
			return nil
		}
		var frame framePayload
		if err := json.Unmarshal(msg.Payload, &frame); err != nil {
			return p.send(MsgError, errorPayload{Error: "invalid frame payload"})
		}
		if err := p.session.Frame(frame.Landmarks); err != nil {
			return p.send(MsgError, errorPayload{Error: "unusable frame: " + err.Error()})
		}
		return nil

	case MsgStop:
		p.session.Stop()
		return p.tick(now, true)

	default:
		return p.send(MsgError, errorPayload{Error: "unknown message type"})
	}
}

// tick advances the game, sends its events, then sends the state. While no
// game is running the state is only sent when forced.
func (p *player) tick(now time.Time, force bool) error {
	events := p.session.Tick(now)
	for _, ev := range events {
		if err := p.send(MsgEvent, ev); err != nil {
			return err
		}
	}
	if !force && len(events) == 0 && !p.session.Game().Playing() {
		return nil
	}
	return p.send(MsgState, p.session.Snapshot(now))
}

func (p *player) send(kind string, payload interface{}) error {
	msg, err := encode(kind, payload)
	if err != nil {
		return err
	}
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, msg)
}
