package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/elara-app/go-elara/alerts"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Tailer owns a Channel's lifecycle: it connects, feeds events into a List,
// and re-establishes the connection with exponential backoff when the
// transport drops. The retry budget applies per outage; it resets once a
// connection is up again.
type Tailer struct {
	httpClient *http.Client
	streamURL  func() (string, error)
	list       *List
	onEvent    func(alerts.Alert)
	log        zerolog.Logger
	clk        clock.Clock

	attempts int
	delay    time.Duration
	maxDelay time.Duration
}

// TailerConfig configures a Tailer. StreamURL is called before every
// connection attempt so a refreshed access token is picked up on
// reconnect.
type TailerConfig struct {
	HTTPClient *http.Client
	StreamURL  func() (string, error)
	List       *List
	OnEvent    func(alerts.Alert) // optional notification hook
	Logger     zerolog.Logger
	Clock      clock.Clock   // defaults to clock.WallClock
	Attempts   int           // reconnect attempts per outage (default 10)
	Delay      time.Duration // initial backoff delay (default 1s)
	MaxDelay   time.Duration // backoff ceiling (default 30s)
}

func NewTailer(cfg TailerConfig) (*Tailer, error) {
	if cfg.StreamURL == nil {
		return nil, errors.New("[stream.NewTailer] StreamURL is required")
	}
	if cfg.List == nil {
		return nil, errors.New("[stream.NewTailer] List is required")
	}

	t := &Tailer{
		httpClient: cfg.HTTPClient,
		streamURL:  cfg.StreamURL,
		list:       cfg.List,
		onEvent:    cfg.OnEvent,
		log:        cfg.Logger,
		clk:        cfg.Clock,
		attempts:   cfg.Attempts,
		delay:      cfg.Delay,
		maxDelay:   cfg.MaxDelay,
	}
	if t.httpClient == nil {
		// No client timeout: the stream stays open indefinitely.
		t.httpClient = &http.Client{}
	}
	if t.clk == nil {
		t.clk = clock.WallClock
	}
	if t.attempts <= 0 {
		t.attempts = 10
	}
	if t.delay <= 0 {
		t.delay = time.Second
	}
	if t.maxDelay <= 0 {
		t.maxDelay = 30 * time.Second
	}
	return t, nil
}

// Run tails the stream until ctx is cancelled or the reconnect budget for a
// single outage is exhausted. It returns nil on cancellation.
func (t *Tailer) Run(ctx context.Context) error {
	for {
		ch, err := t.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "[Tailer.Run] reconnect budget exhausted")
		}

		t.consume(ctx, ch)
		if ctx.Err() != nil {
			return nil
		}
		t.log.Warn().Err(ch.Err()).Msg("alert stream disconnected, reconnecting")
	}
}

func (t *Tailer) connect(ctx context.Context) (*Channel, error) {
	var ch *Channel
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			streamURL, err := t.streamURL()
			if err != nil {
				return err
			}
			connected, err := Connect(ctx, t.httpClient, streamURL, t.log)
			if err != nil {
				return err
			}
			ch = connected
			return nil
		},
		NotifyFunc: func(err error, attempt int) {
			t.log.Debug().Err(err).Int("attempt", attempt).Msg("alert stream connect failed")
		},
		Attempts:    t.attempts,
		Delay:       t.delay,
		MaxDelay:    t.maxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       t.clk,
		Stop:        ctx.Done(),
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// consume drains the channel into the list until the connection ends or ctx
// is cancelled.
func (t *Tailer) consume(ctx context.Context, ch *Channel) {
	defer ch.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case alert, ok := <-ch.Events():
			if !ok {
				return
			}
			t.list.Upsert(alert)
			if t.onEvent != nil {
				t.onEvent(alert)
			}
		}
	}
}
