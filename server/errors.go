package server

import "fmt"

// All of these surface as protocol error events on the originating
// connection only. None of them mutate the session store.

// ValidationError reports malformed client input: nickname, coordinates,
// speed or message text.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotJoinedError means the connection acted before sending a join.
type NotJoinedError struct{}

func (e *NotJoinedError) Error() string {
	return "you must join first"
}

// NotLocatedError means the session tried to send a message before it has
// a zone, i.e. before its first location update.
type NotLocatedError struct{}

func (e *NotLocatedError) Error() string {
	return "you must share your location first"
}

// SpeedLockError is the safety gate: no sending above the configured
// speed. Carries the current speed for display.
type SpeedLockError struct {
	Speed float64
	Limit float64
}

func (e *SpeedLockError) Error() string {
	return fmt.Sprintf("sending is locked above %.0f mph, you are moving at %.1f mph", e.Limit, e.Speed)
}
