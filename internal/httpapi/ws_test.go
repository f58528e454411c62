package httpapi

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/ralphd/internal/broadcast"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

func dialWS(t *testing.T, httpURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestWSStream(t *testing.T) {
	fake := &fakePlane{hub: broadcast.New(8)}
	srv := newTestServer(t, fake)
	conn := dialWS(t, srv.URL)

	// The connected frame is written after the subscription is registered,
	// so anything published past this point must arrive.
	var hello systemFrame
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "system", hello.Channel)
	assert.Equal(t, "connected", hello.Message)

	ev, err := models.NewEvent(models.EventRunStarted, "t1", "r1", nil)
	require.NoError(t, err)
	ev.ID = 7
	fake.hub.Publish(ev)

	var got eventFrame
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "events", got.Channel)
	assert.Equal(t, int64(7), got.Event.ID)
	assert.Equal(t, models.EventRunStarted, got.Event.Type)
	assert.Equal(t, "t1", got.Event.ThreadID)

	fake.hub.PublishProgress("t1", "# Ralph Loop Progress\n")

	var prog progressFrame
	require.NoError(t, conn.ReadJSON(&prog))
	assert.Equal(t, "progress", prog.Channel)
	assert.Equal(t, "t1", prog.ThreadID)
	assert.Equal(t, "# Ralph Loop Progress\n", prog.Content)
}

func TestWSClosesWhenHubCloses(t *testing.T) {
	fake := &fakePlane{hub: broadcast.New(8)}
	srv := newTestServer(t, fake)
	conn := dialWS(t, srv.URL)

	var hello systemFrame
	require.NoError(t, conn.ReadJSON(&hello))

	fake.hub.Close()

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestFrameFor(t *testing.T) {
	lag := frameFor(broadcast.Message{Dropped: 3})
	assert.Equal(t, systemFrame{Channel: "system", Message: "lagged", Dropped: 3}, lag)

	prog := frameFor(broadcast.Message{Progress: &broadcast.ProgressUpdate{ThreadID: "t1", Content: "## Status"}})
	assert.Equal(t, progressFrame{Channel: "progress", ThreadID: "t1", Content: "## Status"}, prog)

	ev := models.Event{ID: 1, Type: models.EventRunQueued, ThreadID: "t1"}
	frame := frameFor(broadcast.Message{Event: &ev})
	assert.Equal(t, eventFrame{Channel: "events", Event: ev}, frame)

	assert.Nil(t, frameFor(broadcast.Message{}))
}
