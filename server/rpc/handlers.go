package rpc

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1 << 10,
	WriteBufferSize: 1 << 15,
}

// WebSocket serves one JSON-RPC call per message.
func WebSocket(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer c.Close()

	for {
		mtype, reader, err := c.NextReader()
		if err != nil {
			break
		}

		res := newRequest(reader).Call()

		writer, err := c.NextWriter(mtype)
		if err != nil {
			break
		}

		io.Copy(writer, res)
		writer.Close()
	}
}

func Post(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	w.Header().Set("Content-Type", "application/json")

	res := newRequest(r.Body).Call()
	if _, err := io.Copy(w, res); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
