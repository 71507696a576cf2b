package server

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Send validates and routes a message from a connection to its zone.
// Preconditions run in a fixed order, first failure wins:
//
//  1. the session has a zone (it shared a location)
//  2. it is moving at or under the speed limit
//  3. the text is non-blank after trimming
//
// On success the message goes once to every other member of the zone and
// once back to the author as an echo.
func (s *Server) Send(connID, rawText string) error {
	s.mtx.Lock()
	sess, ok := s.sessions[connID]
	if !ok || !sess.Located {
		s.mtx.Unlock()
		return &NotLocatedError{}
	}
	if sess.Speed > s.speedLimit {
		speed := sess.Speed
		s.mtx.Unlock()
		return &SpeedLockError{Speed: speed, Limit: s.speedLimit}
	}
	text := strings.TrimSpace(rawText)
	if text == "" {
		s.mtx.Unlock()
		return &ValidationError{Reason: "message cannot be blank"}
	}

	sess.LastSeen = s.now()
	author := *sess
	members := s.zoneMembers(sess.ZoneKey)
	s.mtx.Unlock()

	// The filter is an external collaborator, so it runs after the state
	// read, never under the lock. Short presets (a single emoji and the
	// like) bypass it; a filter failure degrades to the original text.
	if s.filter != nil && utf8.RuneCountInString(text) > s.shortLen {
		filtered, err := s.filter.Filter(text)
		if err != nil {
			s.log.Warn("text filter failed, sending unfiltered",
				zap.String("author", author.ID), zap.Error(err))
		} else {
			text = filtered
		}
	}

	msg := &Message{
		ID:        uuid.New().String(),
		AuthorID:  author.ID,
		Nickname:  author.Nickname,
		Message:   text,
		Timestamp: s.now().UnixNano(),
		ZoneKey:   author.ZoneKey,
	}
	ev := NewEvent(EventNewMessage, msg)

	for _, m := range members {
		if m.ID == author.ID {
			continue
		}
		s.send(m.events, ev)
	}
	// the author is excluded above and echoed here, so it sees its own
	// message exactly once
	s.send(author.events, ev)

	s.history.Record(msg)
	go s.unfurl(msg)

	return nil
}
