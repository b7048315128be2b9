package cfddns

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// DefaultInterval is the time between passes when none is configured.
const DefaultInterval = 600 * time.Second

// notifyTimeout bounds delivery of a single notification.
const notifyTimeout = 30 * time.Second

// Scheduler runs update passes for a fixed set of hosts.
//
// All fields are read-only once Run is called.
type Scheduler struct {
	Client *Client
	Hosts  []DesiredHost

	// Interval is the time between the start of one pass and the next.
	Interval time.Duration
	// PassTimeout bounds a single pass. It defaults to Interval.
	PassTimeout time.Duration

	// Notifier receives the report of every pass that changed a record or failed.
	// Notifications are disabled when it is nil.
	Notifier Notifier
	From, To string

	Logger logr.Logger

	now func() time.Time
}

// Run starts a pass immediately and then once per interval until ctx is done.
//
// Passes never overlap: when a pass runs longer than the interval, the ticks it missed are dropped.
// Pass failures are logged and do not stop the loop.
// Run returns ctx.Err() when ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive; got %s", ErrConfig, s.Interval)
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		select {
		case <-ticker.C:
		default:
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// RunOnce runs a single pass, logs its outcome, and sends a notification if the pass was notable.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	var changes ChangeLog
	changes.Appendf("start: %s", s.clock().Format(time.RFC3339))
	s.Logger.V(1).Info("starting update pass", "hosts", len(s.Hosts))

	passCtx, cancel := s.passContext(ctx)
	res, err := s.Client.RunPass(passCtx, s.Hosts, &changes)
	cancel()

	if err != nil {
		changes.MarkNotable()
		changes.Appendf("failed: %s", err)
		s.Logger.Error(err, "update pass failed", "planned", len(res.Effects), "applied", res.Applied)
	} else {
		changes.Appendf("done: %s", s.clock().Format(time.RFC3339))
		s.Logger.Info("update pass finished", "ip", res.IP, "hosts", len(s.Hosts), "changed", res.Applied)
	}

	text, notable := changes.Drain()
	if notable {
		s.notify(ctx, text)
	}
	return res, err
}

// notify sends report to the configured Notifier.
// Failures are logged and otherwise ignored.
func (s *Scheduler) notify(ctx context.Context, report string) {
	if s.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	err := s.Notifier.Notify(ctx, Mail{
		From:    s.From,
		To:      s.To,
		Subject: "cfddns",
		Body:    report,
	})
	if err != nil {
		s.Logger.Error(fmt.Errorf("%w: %w", ErrNotification, err), "unable to send notification", "to", s.To)
		return
	}
	s.Logger.V(1).Info("notification sent", "to", s.To)
}

func (s *Scheduler) passContext(ctx context.Context) (context.Context, context.CancelFunc) {
	t := s.PassTimeout
	if t <= 0 {
		t = s.Interval
	}
	if t <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t)
}

func (s *Scheduler) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
