package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"zonecast.app/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// check if the request is for websockets
func IsWebSocket(r *http.Request) bool {
	contains := func(key, val string) bool {
		vv := strings.Split(r.Header.Get(key), ",")
		for _, v := range vv {
			if val == strings.ToLower(strings.TrimSpace(v)) {
				return true
			}
		}
		return false
	}

	if contains("Connection", "upgrade") && contains("Upgrade", "websocket") {
		return true
	}

	return false
}

// Gateway upgrades connections and runs one conn per client. It is the
// only piece that touches the network; everything it feeds the core is
// already decoded and everything it gets back arrives on the connection
// mailbox.
type Gateway struct {
	srv *Server
	cfg *config.Config
	log *zap.Logger
}

func NewGateway(srv *Server, cfg *config.Config, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{srv: srv, cfg: cfg, log: log}
}

// ServeWebSocket upgrades the request and pumps the connection until
// either side goes away. The connection id is assigned here and is stable
// for the connection's lifetime.
func (g *Gateway) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	var rspHdr http.Header
	// we use Sec-Websocket-Protocol to pass auth headers so just accept anything here
	if prots := r.Header.Values("Sec-WebSocket-Protocol"); len(prots) > 0 {
		rspHdr = http.Header{}
		for _, p := range prots {
			rspHdr.Add("Sec-WebSocket-Protocol", p)
		}
	}

	ws, err := upgrader.Upgrade(w, r, rspHdr)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	c := &conn{
		id:     uuid.New().String(),
		ctx:    r.Context(),
		ws:     ws,
		events: make(chan *Envelope, g.cfg.Server.OutQueueSize),
		limiter: rate.NewLimiter(
			rate.Limit(g.cfg.RateLimit.EventsPerSecond),
			g.cfg.RateLimit.Burst,
		),
		gateway: g,
	}

	c.run()
}

type conn struct {
	// stable connection identity, also the session id after join
	id string
	// request context
	ctx context.Context
	// the websocket connection
	ws *websocket.Conn
	// outbound mailbox, shared with the core
	events chan *Envelope
	// inbound event throttle
	limiter *rate.Limiter
	gateway *Gateway
}

func (c *conn) run() {
	defer func() {
		c.ws.Close()
		// disconnect is just a remove; the core notifies the zone
		c.gateway.srv.Remove(c.id)
	}()

	stopCtx, cancel := context.WithCancel(context.Background())

	wg := sync.WaitGroup{}
	wg.Add(2)

	go c.writeLoop(cancel, &wg, stopCtx)
	go c.readLoop(cancel, &wg, stopCtx)
	wg.Wait()
}

func (c *conn) readLoop(cancel context.CancelFunc, wg *sync.WaitGroup, stopCtx context.Context) {
	defer func() {
		cancel()
		wg.Done()
	}()

	cfg := c.gateway.cfg
	c.ws.SetReadLimit(int64(cfg.Messages.MaxMessageSize) + 256)
	c.ws.SetReadDeadline(time.Now().Add(cfg.Server.PongTimeout()))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(cfg.Server.PongTimeout()))
		return nil
	})

	for {
		select {
		case <-stopCtx.Done():
			return
		default:
		}

		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gateway.log.Debug("read failed", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.reply(NewErrorEvent(&ValidationError{Reason: "too many events, slow down"}))
			continue
		}

		var ev Envelope
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.reply(NewErrorEvent(&ValidationError{Reason: "malformed event"}))
			continue
		}

		c.dispatch(&ev)
	}
}

// dispatch feeds one decoded inbound event into the core. Failures are
// answered on this connection only; the store is left untouched and the
// connection stays usable.
func (c *conn) dispatch(ev *Envelope) {
	srv := c.gateway.srv
	srv.Touch(c.id)

	switch ev.Type {
	case EventJoin:
		var req JoinRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.reply(NewErrorEvent(&ValidationError{Reason: "malformed join"}))
			return
		}
		if err := srv.Join(c.id, req.Nickname, c.events); err != nil {
			c.reply(NewErrorEvent(err))
			return
		}
		c.reply(NewEvent(EventJoined, &JoinedPayload{ConnectionID: c.id}))

	case EventLocationUpdate:
		var req LocationUpdateRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.reply(NewErrorEvent(&ValidationError{Reason: "malformed location update"}))
			return
		}
		if err := srv.UpdateLocation(c.id, req.Lat, req.Lng, req.Speed); err != nil {
			c.reply(NewErrorEvent(err))
		}

	case EventSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.reply(NewErrorEvent(&ValidationError{Reason: "malformed message"}))
			return
		}
		if max := c.gateway.cfg.Messages.MaxMessageSize; len(req.Message) > max {
			// back off to a rune boundary so the cut never splits a
			// multi-byte character
			cut := max
			for cut > 0 && !utf8.RuneStart(req.Message[cut]) {
				cut--
			}
			req.Message = req.Message[:cut]
		}
		if err := srv.Send(c.id, req.Message); err != nil {
			c.reply(NewErrorEvent(err))
		}

	default:
		c.reply(NewErrorEvent(&ValidationError{Reason: "unknown event type " + ev.Type}))
	}
}

// reply queues an event for this connection through its own mailbox so
// replies and broadcasts come out in one ordered stream.
func (c *conn) reply(ev *Envelope) {
	select {
	case c.events <- ev:
	default:
		c.gateway.log.Warn("dropping reply for slow connection", zap.String("conn", c.id))
	}
}

func (c *conn) writeLoop(cancel context.CancelFunc, wg *sync.WaitGroup, stopCtx context.Context) {
	defer func() {
		c.ws.Close()
		cancel()
		wg.Done()
	}()

	cfg := c.gateway.cfg
	pingPeriod := cfg.Server.PongTimeout() / 4
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stopCtx.Done():
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.Server.WriteTimeout()))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev := <-c.events:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.Server.WriteTimeout()))
			w, err := c.ws.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			b, _ := json.Marshal(ev)
			if _, err := w.Write(b); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		}
	}
}
