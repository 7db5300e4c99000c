package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/gorilla/websocket"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
	"github.com/marcopiovanello/yt-dlp-gui/server/logging"
)

func TestEventStream(t *testing.T) {
	sessionBus := session.NewBus()
	logBus := EventBus.New()

	h, err := newHub(sessionBus, logBus)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(h.serve))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.size() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined")
		}
		time.Sleep(10 * time.Millisecond)
	}

	sessionBus.Publish(session.TopicLine, session.LineEvent{OperationId: "op", Line: "[download] 10%"})
	sessionBus.WaitAsync()
	logBus.Publish(logging.TopicLog, "hello")
	logBus.WaitAsync()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var got []Event
	for len(got) < 2 {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatal(err)
		}
		got = append(got, ev)
	}

	if got[0].Topic != session.TopicLine {
		t.Errorf("Expected %s first, got %s", session.TopicLine, got[0].Topic)
	}
	data, ok := got[0].Data.(map[string]any)
	if !ok || data["line"] != "[download] 10%" {
		t.Errorf("Unexpected line event %+v", got[0].Data)
	}
	if got[1].Topic != logging.TopicLog || got[1].Data != "hello" {
		t.Errorf("Unexpected log event %+v", got[1])
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for h.size() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not removed after disconnecting")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
