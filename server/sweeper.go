package server

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically evicts sessions that stopped reporting. It submits
// the same removals as any disconnect would, so it cannot race the
// connection handling path, and it never blocks on delivery.
type Sweeper struct {
	srv      *Server
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewSweeper(srv *Server, interval, timeout time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{srv: srv, interval: interval, timeout: timeout, log: log}
}

// Run ticks until the context is cancelled.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := w.srv.SweepStale(w.timeout); n > 0 {
				w.log.Info("evicted stale sessions", zap.Int("count", n))
			}
		}
	}
}

// SweepStale removes every session whose last update is older than the
// timeout, notifies the zones they held and expires old zone history.
// Multiple evictions in one zone coalesce into a single membership
// refresh per zone. Returns the number of evicted sessions.
func (s *Server) SweepStale(timeout time.Duration) int {
	now := s.now()

	s.mtx.Lock()
	var evicted []*Session
	for id, sess := range s.sessions {
		if now.Sub(sess.LastSeen) > timeout {
			evicted = append(evicted, sess)
			delete(s.sessions, id)
		}
	}
	s.mtx.Unlock()

	zones := make(map[string]struct{})
	for _, sess := range evicted {
		if sess.ZoneKey == "" {
			continue
		}
		zones[sess.ZoneKey] = struct{}{}
		s.broadcastZone(sess.ZoneKey, NewEvent(EventUserLeft, &UserLeftPayload{
			ConnectionID: sess.ID,
			Nickname:     sess.Nickname,
		}), "")
	}
	for zone := range zones {
		s.RefreshZone(zone)
	}

	s.history.Expire(now)

	return len(evicted)
}
