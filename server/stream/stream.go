package stream

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/gorilla/websocket"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
	"github.com/marcopiovanello/yt-dlp-gui/server/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	clientBuffer = 256
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Event is a single message of the event stream.
type Event struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// hub fans bus events out to the connected clients. A client that cannot
// keep up loses events rather than stalling the publisher.
type hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
}

func newHub(sessionBus, logBus EventBus.Bus) (*hub, error) {
	h := &hub{clients: make(map[chan Event]struct{})}

	subscriptions := map[string]any{
		session.TopicState:      func(st session.State) { h.broadcast(session.TopicState, st) },
		session.TopicLine:       func(ev session.LineEvent) { h.broadcast(session.TopicLine, ev) },
		session.TopicOutcome:    func(ev session.OutcomeEvent) { h.broadcast(session.TopicOutcome, ev) },
		session.TopicDownloaded: func(res downloaders.Result) { h.broadcast(session.TopicDownloaded, res) },
	}
	for topic, fn := range subscriptions {
		if err := sessionBus.SubscribeAsync(topic, fn, true); err != nil {
			return nil, err
		}
	}

	if logBus != nil {
		err := logBus.SubscribeAsync(logging.TopicLog, func(line string) {
			h.broadcast(logging.TopicLog, line)
		}, true)
		if err != nil {
			return nil, err
		}
	}

	return h, nil
}

func (h *hub) broadcast(topic string, data any) {
	ev := Event{Topic: topic, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *hub) join() chan Event {
	ch := make(chan Event, clientBuffer)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

func (h *hub) leave(ch chan Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler streams session and log events as JSON over a websocket.
func Handler(sessionBus, logBus EventBus.Bus) http.HandlerFunc {
	h, err := newHub(sessionBus, logBus)
	if err != nil {
		return func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
	return h.serve
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer c.Close()

	events := h.join()
	defer h.leave(events)

	// the client only ever sends control frames, a read error means it left
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case ev := <-events:
			c.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			if err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
