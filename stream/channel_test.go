package stream_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/elara-app/go-elara/alerts"
	"github.com/elara-app/go-elara/internal/apitest"
	"github.com/elara-app/go-elara/stream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedChannel(t *testing.T) (*apitest.Server, *stream.Channel) {
	t.Helper()

	server := apitest.New(t)
	access, _ := server.SeedSession()

	channel, err := stream.Connect(
		context.Background(),
		&http.Client{},
		alerts.StreamURL(server.URL, access),
		zerolog.Nop(),
	)
	require.NoError(t, err)
	t.Cleanup(channel.Close)
	return server, channel
}

func receive(t *testing.T, channel *stream.Channel) alerts.Alert {
	t.Helper()
	select {
	case alert, ok := <-channel.Events():
		require.True(t, ok, "stream ended unexpectedly")
		return alert
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream event")
		return alerts.Alert{}
	}
}

func TestChannelDeliversAlerts(t *testing.T) {
	server, channel := connectedChannel(t)

	server.PushAlert(alerts.Alert{ID: 1, Type: alerts.TypeSuccess, Title: "New booking received"})
	server.PushAlert(alerts.Alert{ID: 2, Type: alerts.TypeInfo, Title: "Call completed"})

	first := receive(t, channel)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "New booking received", first.Title)

	second := receive(t, channel)
	assert.Equal(t, int64(2), second.ID)
}

func TestChannelDiscardsMalformedEvents(t *testing.T) {
	server, channel := connectedChannel(t)

	server.PushRaw("this is not json")
	server.PushRaw(`{"id":"also-not-a-number"}`)
	server.PushRaw(`{"title":"missing id"}`)
	server.PushAlert(alerts.Alert{ID: 7, Type: alerts.TypeWarning, Title: "survivor"})

	// Only the well-formed event comes through; the garbage before it is
	// silently dropped and the channel stays up.
	alert := receive(t, channel)
	assert.Equal(t, int64(7), alert.ID)
}

func TestChannelRejectsBadToken(t *testing.T) {
	server := apitest.New(t)
	server.SeedSession()

	_, err := stream.Connect(
		context.Background(),
		&http.Client{},
		alerts.StreamURL(server.URL, "wrong-token"),
		zerolog.Nop(),
	)
	require.Error(t, err)
}

func TestChannelCloseIsCleanAndIdempotent(t *testing.T) {
	_, channel := connectedChannel(t)

	channel.Close()
	channel.Close()

	select {
	case _, ok := <-channel.Events():
		assert.False(t, ok, "events channel closes after Close")
	case <-time.After(5 * time.Second):
		t.Fatal("events channel did not close")
	}
	assert.NoError(t, channel.Err(), "a locally closed channel reports no transport error")
}

func TestChannelSurfacesServerDisconnect(t *testing.T) {
	server, channel := connectedChannel(t)

	server.CloseClientConnections()

	select {
	case _, ok := <-channel.Events():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("events channel did not close after server disconnect")
	}
	assert.Error(t, channel.Err(), "a dropped transport reports an error")
}
