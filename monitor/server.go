// Package monitor serves live step statistics to a browser over a
// websocket, so a long headless run can be watched without attaching the
// raylib viewer.
package monitor

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"

	"github.com/pthm-cable/neutron/telemetry"
)

var upgrader = websocket.Upgrader{}

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
)

// Server publishes per-step stats to a single websocket client. Updates
// are dropped while no client is connected; the stream is telemetry, not
// state of record.
type Server struct {
	addr    string
	updates <-chan telemetry.StepStats
	done    <-chan struct{}
}

// NewServer returns a server for the given listen address. The updates
// channel carries each completed step's stats; closing done stops
// publication.
func NewServer(addr string, done <-chan struct{}, updates <-chan telemetry.StepStats) *Server {
	return &Server{addr: addr, updates: updates, done: done}
}

// Handler returns the monitor's routes: the status page at / and the stats
// stream at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveIndex)
	mux.HandleFunc("/ws", s.serveWebsocket)
	return mux
}

// Serve blocks, listening on the configured address.
func (s *Server) Serve() error {
	if err := http.ListenAndServe(s.addr, s.Handler()); err != nil {
		return fmt.Errorf("monitor: serve: %w", err)
	}
	return nil
}

// serveWebsocket publishes step stats to the client until the stream ends
// or the write fails. One client at a time; a second connection competes
// for the same updates channel.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Warn("monitor: upgrade failed", "err", err)
		return
	}
	defer ws.Close()
	slog.Info("monitor: client connected", "remote", r.RemoteAddr)

	for stats := range channerics.OrDone[telemetry.StepStats](s.done, s.updates) {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(stats); err != nil {
			slog.Warn("monitor: client write failed", "err", err)
			return
		}
	}
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>neutron transport monitor</title></head>
<body>
<h3>neutron transport</h3>
<pre id="stats">waiting for step data...</pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
  const s = JSON.parse(ev.data);
  document.getElementById("stats").textContent = JSON.stringify(s, null, 2);
};
ws.onclose = () => {
  document.getElementById("stats").textContent += "\n[stream closed]";
};
</script>
</body>
</html>
`
