package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// events streams every published snapshot as a server-sent event until the client leaves.
func (that *handlers) events(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "events")

	flusher, ok := w.(http.Flusher)
	if !ok {
		that.fail(w, r, fmt.Errorf("streaming is not supported by %T", w))
		return
	}

	updates, unsubscribe := that.session.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case snapshot, open := <-updates:
			if !open {
				return
			}

			data, err := json.Marshal(snapshot)
			if err != nil {
				log.Error("failed to marshal snapshot", "error", err)
				return
			}

			if _, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				log.Debug("client left", "error", err)
				return
			}

			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
