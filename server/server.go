// Package server implements the Zonecast presence engine.
//
// Clients report position and speed over a websocket. Sessions are grouped
// into geohash cells ("zones") and short messages are routed only to the
// other sessions currently in the same cell. Sessions that stop reporting
// are swept out after a staleness timeout.
//
// The session map is the single source of truth. Every operation on it
// (join, location update, remove, snapshot, send) runs under one lock, so
// no caller ever observes a partially applied mutation. Delivery to
// connections happens after the lock is released, through buffered per
// connection channels with non-blocking sends, so one slow client never
// stalls the core or its neighbours.
package server

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"zonecast.app/config"
	"zonecast.app/spatial"
)

const MaxNicknameLen = 20

// Session is the server-side record of one connected, possibly-located
// client. Owned exclusively by the Server; everything handed out is a copy
// or a projection.
type Session struct {
	ID       string
	Nickname string

	// Located is false until the first location update. A session without
	// a zone is invisible to every broadcast and cannot send or receive
	// messages.
	Located bool
	Lat     float64
	Lng     float64
	Speed   float64
	ZoneKey string

	LastSeen time.Time

	seq    uint64
	events chan<- *Envelope
}

type Server struct {
	log     *zap.Logger
	filter  TextFilter
	history *History

	precision  int
	speedLimit float64
	shortLen   int

	// now is replaceable for tests
	now func() time.Time

	mtx      sync.RWMutex
	seq      uint64
	sessions map[string]*Session
}

func New(cfg *config.Config, filter TextFilter, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:        log,
		filter:     filter,
		history:    NewHistory(cfg.Messages.HistoryLimit, cfg.Messages.HistoryTTL()),
		precision:  cfg.Zone.Precision,
		speedLimit: cfg.Messages.SpeedLimitMPH,
		shortLen:   cfg.Messages.ShortFilterLen,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
}

// Join creates a session for a connection. The events channel is the
// connection's outbound mailbox; the server only ever does non-blocking
// sends on it.
func (s *Server) Join(connID, nickname string, events chan<- *Envelope) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return &ValidationError{Reason: "nickname cannot be blank"}
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLen {
		return &ValidationError{Reason: "nickname cannot exceed 20 characters"}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.sessions[connID]; ok {
		return &ValidationError{Reason: "already joined"}
	}

	s.seq++
	s.sessions[connID] = &Session{
		ID:       connID,
		Nickname: nickname,
		LastSeen: s.now(),
		seq:      s.seq,
		events:   events,
	}

	s.log.Debug("session joined", zap.String("id", connID), zap.String("nickname", nickname))
	return nil
}

// UpdateLocation records a position fix. It recomputes the zone key,
// refreshes the zone's member lists and, when the session moves between
// two distinct zones, tells the mover which zone it is now in and replays
// the new zone's recent messages.
//
// First acquisition of a zone deliberately emits no zone-changed event:
// only a transition between two non-empty zones counts as a change.
func (s *Server) UpdateLocation(connID string, lat, lng, speed float64) error {
	s.mtx.Lock()
	sess, ok := s.sessions[connID]
	if !ok {
		s.mtx.Unlock()
		return &NotJoinedError{}
	}
	if !(lat >= -90 && lat <= 90) || !(lng >= -180 && lng <= 180) {
		s.mtx.Unlock()
		return &ValidationError{Reason: "coordinates out of range"}
	}
	if speed < 0 || math.IsNaN(speed) {
		s.mtx.Unlock()
		return &ValidationError{Reason: "speed must be a non-negative number"}
	}

	oldZone := sess.ZoneKey
	newZone := spatial.ZoneFromLocation(lat, lng, s.precision)

	sess.Located = true
	sess.Lat = lat
	sess.Lng = lng
	sess.Speed = speed
	sess.ZoneKey = newZone
	sess.LastSeen = s.now()

	events := sess.events
	s.mtx.Unlock()

	entered := oldZone != newZone
	changed := entered && oldZone != ""

	if changed {
		s.send(events, NewEvent(EventZoneChanged, &ZoneChangedPayload{ZoneKey: newZone}))
		// the old zone lost a member
		s.RefreshZone(oldZone)
	}
	if entered {
		if recent := s.history.Recent(newZone, 0); len(recent) > 0 {
			s.send(events, NewEvent(EventRecentMessages, recent))
		}
	}
	s.RefreshZone(newZone)

	return nil
}

// Remove deletes a session; used by both disconnect and eviction. No-op
// when the connection never joined. The former zone, if any, gets a
// user-left notice and a fresh member list.
func (s *Server) Remove(connID string) {
	s.mtx.Lock()
	sess, ok := s.sessions[connID]
	if ok {
		delete(s.sessions, connID)
	}
	s.mtx.Unlock()

	if !ok {
		return
	}

	s.log.Debug("session removed", zap.String("id", connID))

	if sess.ZoneKey != "" {
		s.broadcastZone(sess.ZoneKey, NewEvent(EventUserLeft, &UserLeftPayload{
			ConnectionID: sess.ID,
			Nickname:     sess.Nickname,
		}), "")
		s.RefreshZone(sess.ZoneKey)
	}
}

// Touch refreshes a session's last-seen time. Called for any inbound
// event so an active client is never swept.
func (s *Server) Touch(connID string) {
	s.mtx.Lock()
	if sess, ok := s.sessions[connID]; ok {
		sess.LastSeen = s.now()
	}
	s.mtx.Unlock()
}

// Snapshot returns the public views of every located session in a zone,
// ordered by session creation. Recomputed on every call, never cached.
func (s *Server) Snapshot(zoneKey string) []NearbyUser {
	s.mtx.RLock()
	members := s.zoneMembers(zoneKey)
	s.mtx.RUnlock()

	users := make([]NearbyUser, 0, len(members))
	for _, m := range members {
		users = append(users, NearbyUser{
			ConnectionID: m.ID,
			Nickname:     m.Nickname,
			Lat:          m.Lat,
			Lng:          m.Lng,
			Speed:        m.Speed,
		})
	}
	return users
}

// Zones lists active zone keys with member counts.
func (s *Server) Zones() map[string]int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	zones := make(map[string]int)
	for _, sess := range s.sessions {
		if sess.ZoneKey != "" {
			zones[sess.ZoneKey]++
		}
	}
	return zones
}

// Count returns the number of live sessions.
func (s *Server) Count() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.sessions)
}

// zoneMembers returns the zone's located sessions in join order. Callers
// must hold at least the read lock; the returned copies are safe to use
// after release.
func (s *Server) zoneMembers(zoneKey string) []*Session {
	if zoneKey == "" {
		return nil
	}
	var members []*Session
	for _, sess := range s.sessions {
		if sess.Located && sess.ZoneKey == zoneKey {
			c := *sess
			members = append(members, &c)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].seq < members[j].seq })
	return members
}

// broadcastZone delivers an event to every member of a zone, optionally
// excluding one connection.
func (s *Server) broadcastZone(zoneKey string, ev *Envelope, exclude string) {
	s.mtx.RLock()
	members := s.zoneMembers(zoneKey)
	s.mtx.RUnlock()

	for _, m := range members {
		if m.ID == exclude {
			continue
		}
		s.send(m.events, ev)
	}
}

// send pushes an event onto a connection mailbox without blocking. A full
// mailbox means the client is too slow to keep up; the event is dropped
// rather than holding everyone else back.
func (s *Server) send(events chan<- *Envelope, ev *Envelope) {
	select {
	case events <- ev:
	default:
		s.log.Warn("dropping event for slow connection", zap.String("event", ev.Type))
	}
}
