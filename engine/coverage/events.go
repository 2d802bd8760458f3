package coverage

import (
	"context"
	"log/slog"
	"time"

	"github.com/WessleyAI/wessley-coverage/engine/domain"
	"github.com/WessleyAI/wessley-coverage/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

// SubjectToggled is the NATS subject applied toggles are published on.
const SubjectToggled = "coverage.toggled"

// ToggleEvent describes one applied coverage change.
type ToggleEvent struct {
	GridID  string              `json:"grid_id"`
	Model   domain.VehicleModel `json:"model"`
	Year    domain.ModelYear    `json:"year"`
	Covered bool                `json:"covered"`
	At      time.Time           `json:"at"`
}

// Notifier receives applied toggles. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, ev ToggleEvent)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ToggleEvent) {}

// NATSNotifier publishes toggle events as JSON to SubjectToggled.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier creates a notifier on an open connection.
func NewNATSNotifier(nc *nats.Conn, logger *slog.Logger) *NATSNotifier {
	return &NATSNotifier{nc: nc, subject: SubjectToggled, logger: logger}
}

// Notify publishes ev. Failures are logged and otherwise ignored.
func (n *NATSNotifier) Notify(ctx context.Context, ev ToggleEvent) {
	if err := natsutil.Publish(ctx, n.nc, n.subject, ev); err != nil {
		n.logger.Warn("publish toggle event failed", "grid", ev.GridID, "err", err)
	}
}
