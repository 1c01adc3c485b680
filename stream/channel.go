// Package stream implements the live alert channel: a Server-Sent Events
// client, a bounded reconciling notification list, and a reconnecting
// tailer that owns the channel lifecycle.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/elara-app/go-elara/alerts"
	"github.com/elara-app/go-elara/internal/apperrors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// eventBuffer is the capacity of the delivery channel. Consumers slower
// than this apply backpressure to the read loop rather than losing events.
const eventBuffer = 32

// Channel is one live SSE connection. Events arrive on Events(); the
// channel is closed when the connection ends, after which Err reports the
// transport error (nil on a clean Close). A Channel never reconnects on its
// own; that is the owner's job (see Tailer).
type Channel struct {
	resp   *http.Response
	events chan alerts.Alert
	done   chan struct{}
	log    zerolog.Logger

	closeOnce sync.Once

	errLock sync.Mutex
	err     error
}

// Connect opens the SSE endpoint at streamURL. The access token travels
// inside the URL (see alerts.StreamURL); the transport has no header-based
// authentication.
func Connect(ctx context.Context, httpClient *http.Client, streamURL string, log zerolog.Logger) (*Channel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[stream.Connect] build request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[stream.Connect] open stream")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, errors.Wrapf(apperrors.ErrStreamUnavailable, "status %d", resp.StatusCode)
	}

	ch := &Channel{
		resp:   resp,
		events: make(chan alerts.Alert, eventBuffer),
		done:   make(chan struct{}),
		log:    log,
	}
	go ch.readLoop()
	return ch, nil
}

// Events returns the delivery channel. It is closed when the connection
// ends, for any reason.
func (ch *Channel) Events() <-chan alerts.Alert {
	return ch.events
}

// Err returns the transport error that ended the stream. It is meaningful
// only after Events() has been closed, and is nil after a clean Close.
func (ch *Channel) Err() error {
	ch.errLock.Lock()
	defer ch.errLock.Unlock()
	return ch.err
}

// Close tears the connection down. It must be called when the owning
// context goes away, or the connection leaks. Safe to call more than once.
func (ch *Channel) Close() {
	ch.closeOnce.Do(func() {
		close(ch.done)
		_ = ch.resp.Body.Close()
	})
}

// readLoop parses the SSE wire format: "data:" lines accumulate until a
// blank line dispatches the event; comment lines (server heartbeats) and
// unknown fields are ignored. Malformed payloads are dropped without
// disturbing the stream.
func (ch *Channel) readLoop() {
	defer close(ch.events)

	scanner := bufio.NewScanner(ch.resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if data.Len() > 0 {
				ch.dispatch(data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// Heartbeat / comment. Keep-alive only.
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event:/id:/retry: fields are not used by this stream.
		}
	}

	select {
	case <-ch.done:
		// Closed locally; scanner error is just the aborted read.
	default:
		if err := scanner.Err(); err != nil {
			ch.setErr(errors.Wrap(err, "[Channel.readLoop] stream read"))
		} else {
			ch.setErr(apperrors.ErrStreamClosed)
		}
	}
	ch.Close()
}

func (ch *Channel) dispatch(payload string) {
	var alert alerts.Alert
	if err := json.Unmarshal([]byte(payload), &alert); err != nil || alert.ID == 0 {
		// Malformed events must never crash the channel.
		ch.log.Debug().Msg("discarding malformed stream event")
		return
	}
	select {
	case ch.events <- alert:
	case <-ch.done:
	}
}

func (ch *Channel) setErr(err error) {
	ch.errLock.Lock()
	defer ch.errLock.Unlock()
	if ch.err == nil {
		ch.err = err
	}
}
