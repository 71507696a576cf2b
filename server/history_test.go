package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(id, zone, text string) *Message {
	return &Message{
		ID:        id,
		AuthorID:  "author",
		Nickname:  "author",
		Message:   text,
		Timestamp: time.Now().UnixNano(),
		ZoneKey:   zone,
	}
}

func TestHistoryRecordAndRecent(t *testing.T) {
	h := NewHistory(10, time.Hour)

	h.Record(testMessage("1", "zone-a", "first"))
	h.Record(testMessage("2", "zone-a", "second"))
	h.Record(testMessage("3", "zone-b", "elsewhere"))

	recent := h.Recent("zone-a", 0)
	require.Len(t, recent, 2)
	assert.Equal(t, "first", recent[0].Message)
	assert.Equal(t, "second", recent[1].Message)

	assert.Len(t, h.Recent("zone-b", 0), 1)
	assert.Nil(t, h.Recent("zone-c", 0))
}

func TestHistoryCapsPerZone(t *testing.T) {
	h := NewHistory(3, time.Hour)

	for i := 0; i < 5; i++ {
		h.Record(testMessage(fmt.Sprintf("%d", i), "zone", fmt.Sprintf("msg %d", i)))
	}

	recent := h.Recent("zone", 0)
	require.Len(t, recent, 3)
	assert.Equal(t, "msg 2", recent[0].Message)
	assert.Equal(t, "msg 4", recent[2].Message)
}

func TestHistoryRecentLimit(t *testing.T) {
	h := NewHistory(10, time.Hour)
	for i := 0; i < 5; i++ {
		h.Record(testMessage(fmt.Sprintf("%d", i), "zone", fmt.Sprintf("msg %d", i)))
	}

	recent := h.Recent("zone", 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "msg 3", recent[0].Message)
	assert.Equal(t, "msg 4", recent[1].Message)
}

func TestHistoryMetadataEnrichesCopies(t *testing.T) {
	h := NewHistory(10, time.Hour)
	m := testMessage("1", "zone", "look at https://example.com")
	h.Record(m)

	h.SetMetadata("1", &Metadata{Title: "Example", Type: "website", Image: "x.png", URL: "https://example.com"})

	recent := h.Recent("zone", 0)
	require.Len(t, recent, 1)
	require.NotNil(t, recent[0].Metadata)
	assert.Equal(t, "Example", recent[0].Metadata.Title)

	// the stored record stays untouched
	assert.Nil(t, m.Metadata)
}

func TestHistoryExpire(t *testing.T) {
	h := NewHistory(10, time.Hour)
	h.Record(testMessage("1", "zone", "old news"))
	h.SetMetadata("1", &Metadata{Title: "t", Type: "website", Image: "i", URL: "u"})

	h.Expire(time.Now().Add(30 * time.Minute))
	assert.Len(t, h.Recent("zone", 0), 1, "not expired yet")

	h.Expire(time.Now().Add(2 * time.Hour))
	assert.Nil(t, h.Recent("zone", 0))
	assert.Empty(t, h.metadata)
}
