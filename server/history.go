package server

import (
	"sync"
	"time"
)

type zoneHistory struct {
	messages []*Message
	updated  time.Time
}

// History keeps the recent messages of each zone in memory, capped per
// zone and expired wholesale once a zone goes quiet. Nothing survives a
// restart.
type History struct {
	limit int
	ttl   time.Duration

	mtx      sync.RWMutex
	zones    map[string]*zoneHistory
	metadata map[string]*Metadata // message id -> unfurled link metadata
}

func NewHistory(limit int, ttl time.Duration) *History {
	if limit <= 0 {
		limit = 50
	}
	return &History{
		limit:    limit,
		ttl:      ttl,
		zones:    make(map[string]*zoneHistory),
		metadata: make(map[string]*Metadata),
	}
}

// Record appends a routed message to its zone's history.
func (h *History) Record(m *Message) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	zh, ok := h.zones[m.ZoneKey]
	if !ok {
		zh = &zoneHistory{}
		h.zones[m.ZoneKey] = zh
	}

	zh.messages = append(zh.messages, m)
	if len(zh.messages) > h.limit {
		dropped := zh.messages[0]
		delete(h.metadata, dropped.ID)
		zh.messages = zh.messages[1:]
	}
	zh.updated = time.Now()
}

// Recent returns up to limit of the zone's newest messages in
// chronological order. A limit of zero or less means the history cap.
// Messages with unfurled metadata are returned as enriched copies.
func (h *History) Recent(zoneKey string, limit int) []*Message {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	zh, ok := h.zones[zoneKey]
	if !ok {
		return nil
	}

	if limit <= 0 || limit > h.limit {
		limit = h.limit
	}
	start := 0
	if len(zh.messages) > limit {
		start = len(zh.messages) - limit
	}

	out := make([]*Message, 0, len(zh.messages)-start)
	for _, m := range zh.messages[start:] {
		if g, ok := h.metadata[m.ID]; ok {
			mc := *m
			mc.Metadata = g
			out = append(out, &mc)
		} else {
			out = append(out, m)
		}
	}
	return out
}

// SetMetadata attaches unfurled link metadata to a recorded message.
func (h *History) SetMetadata(messageID string, g *Metadata) {
	if g == nil {
		return
	}
	h.mtx.Lock()
	h.metadata[messageID] = g
	h.mtx.Unlock()
}

// Expire drops zones that have seen no messages within the TTL.
func (h *History) Expire(now time.Time) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	for zone, zh := range h.zones {
		if now.Sub(zh.updated) > h.ttl {
			for _, m := range zh.messages {
				delete(h.metadata, m.ID)
			}
			delete(h.zones, zone)
		}
	}
}
