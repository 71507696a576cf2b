package server

// RefreshZone pushes the zone's full membership snapshot to every session
// in it, the triggering session included. Filtering out "me" is the
// client's job. Runs after every join-with-position, location update,
// disconnect and eviction batch.
func (s *Server) RefreshZone(zoneKey string) {
	if zoneKey == "" {
		return
	}

	s.mtx.RLock()
	members := s.zoneMembers(zoneKey)
	s.mtx.RUnlock()

	if len(members) == 0 {
		return
	}

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

	ev := NewEvent(EventNearbyUsers, users)
	for _, m := range members {
		s.send(m.events, ev)
	}
}
