package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/RussellLuo/slidingwindow"
	"github.com/gorilla/websocket"
)

func perSecondLimiter(count int64) *slidingwindow.Limiter {
	lim, _ := slidingwindow.NewLimiter(time.Second, count, func() (slidingwindow.Window, slidingwindow.StopFunc) {
		return slidingwindow.NewLocalWindow()
	})
	return lim
}

// Subscriber maintains the gateway websocket connection and feeds decoded
// events into the keyed scheduler. It reconnects with capped backoff and
// throttles ingest with a sliding-window limiter so a misbehaving gateway
// cannot flood the engines.
type Subscriber struct {
	URL       string
	Scheduler *Scheduler
	Logger    *slog.Logger

	// events admitted per second before ingest throttling kicks in
	EventsPerSecond int64
}

func NewSubscriber(url string, sched *Scheduler, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		URL:             url,
		Scheduler:       sched,
		Logger:          logger.With("system", "gateway-subscriber"),
		EventsPerSecond: 500,
	}
}

// Run blocks until ctx is cancelled, reconnecting on read failures.
func (s *Subscriber) Run(ctx context.Context) error {
	lim := perSecondLimiter(s.EventsPerSecond)

	var backoff int
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("shutting down gateway subscriber")
			return nil
		default:
		}

		d := websocket.DefaultDialer
		conn, _, err := d.DialContext(ctx, s.URL, nil)
		if err != nil {
			s.Logger.Warn("gateway dial failed", "url", s.URL, "backoff", backoff, "err", err)
			backoff++
			if backoff > 10 {
				backoff = 10
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Duration(backoff) * time.Second):
			}
			continue
		}
		backoff = 0
		s.Logger.Info("gateway connected", "url", s.URL)

		if err := s.readLoop(ctx, conn, lim); err != nil {
			s.Logger.Warn("gateway connection lost", "err", err)
		}
		conn.Close()
	}
}

func (s *Subscriber) readLoop(ctx context.Context, conn *websocket.Conn, lim *slidingwindow.Limiter) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			return err
		}
		if evt.Kind == "" || evt.CommunityID == "" {
			s.Logger.Debug("dropping malformed gateway event")
			continue
		}

		for !lim.Allow() {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(10 * time.Millisecond):
			}
		}

		if err := s.Scheduler.AddWork(ctx, &evt); err != nil {
			return err
		}
	}
}
