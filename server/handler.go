package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Routes wires the HTTP surface onto a mux: the websocket event channel
// plus a couple of read-only observability endpoints.
func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.Handle("/events", WithCors(http.HandlerFunc(g.EventsHandler)))
	mux.Handle("/zones", WithCors(http.HandlerFunc(g.ZonesHandler)))
	mux.HandleFunc("/healthz", g.HealthHandler)
}

// EventsHandler serves the bidirectional event channel. Websocket only;
// everything stateful happens over the socket.
func (g *Gateway) EventsHandler(w http.ResponseWriter, r *http.Request) {
	if !IsWebSocket(r) {
		http.Error(w, "websocket required", 400)
		return
	}
	g.ServeWebSocket(w, r)
}

// ZonesHandler lists active zone keys with member counts. Coarse counts
// only; positions and nicknames stay inside zone broadcasts.
func (g *Gateway) ZonesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "unsupported method "+r.Method, 400)
		return
	}

	b, _ := json.Marshal(g.srv.Zones())
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (g *Gateway) HealthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, g.srv.Count())
}

func WithCors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// if options return immediately
		if r.Method == "OPTIONS" {
			return
		}

		h.ServeHTTP(w, r)
	})
}
