package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// keepAliveInterval paces comment frames that defeat idle-connection
// timeouts in intermediary proxies.
const keepAliveInterval = 25 * time.Second

// ServeSSE opens a server-sent-events channel for userID and blocks until
// the client disconnects. Each frame is "data: {type,data,timestamp}\n\n".
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request, userID int) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := newClient(userID)
	h.register <- c
	defer func() { h.unregister <- c }()

	if hello, err := json.Marshal(connectionEvent()); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", hello)
		flusher.Flush()
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
