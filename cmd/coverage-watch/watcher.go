package main

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/wessley-coverage/engine/coverage"
	"github.com/WessleyAI/wessley-coverage/pkg/metrics"
	"github.com/WessleyAI/wessley-coverage/pkg/natsutil"
)

type watcher struct {
	reg       *metrics.Registry
	logger    *slog.Logger
	malformed *metrics.Counter
}

func newWatcher(reg *metrics.Registry, logger *slog.Logger) *watcher {
	return &watcher{
		reg:       reg,
		logger:    logger,
		malformed: reg.Counter("coverage_events_malformed_total", "Toggle events that failed to decode"),
	}
}

func (w *watcher) subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, coverage.SubjectToggled, w.handle, w.handleBad)
}

func (w *watcher) handle(_ context.Context, ev coverage.ToggleEvent) {
	direction := coverage.StateUncovered
	if ev.Covered {
		direction = coverage.StateCovered
	}
	w.reg.Counter(metrics.WithLabels("coverage_events_total", "direction", direction.String()),
		"Toggle events observed").Inc()
	w.logger.Info("coverage toggled",
		"grid", ev.GridID,
		"model", ev.Model,
		"year", ev.Year,
		"covered", ev.Covered,
		"at", ev.At,
	)
}

func (w *watcher) handleBad(msg *nats.Msg, err error) {
	w.malformed.Inc()
	w.logger.Warn("malformed toggle event", "subject", msg.Subject, "err", err)
}
