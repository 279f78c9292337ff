package alerting

import (
	"context"
	"log/slog"
)

// Channel delivers an alert to one notification destination. Delivery
// mechanics (chat payloads, topic publish, email formatting) live behind
// this interface.
type Channel interface {
	Type() string
	Send(ctx context.Context, alert Alert) error
}

// Router dispatches alerts to the channels configured for their severity.
type Router struct {
	routes map[Severity][]Channel
	logger *slog.Logger
}

// NewRouter creates a router over a severity to channel-list mapping.
func NewRouter(routes map[Severity][]Channel, logger *slog.Logger) *Router {
	return &Router{routes: routes, logger: logger}
}

// Dispatch sends the alert to every channel configured for its severity.
// Channel deliveries are independent: a failure is logged and does not
// block the remaining channels or propagate to the caller. Returns the
// number of successful deliveries.
func (r *Router) Dispatch(ctx context.Context, alert Alert) int {
	channels := r.routes[alert.Severity]
	if len(channels) == 0 {
		r.logger.Warn("no channels configured for severity",
			"severity", alert.Severity,
			"metric", alert.Metric,
			"account_id", alert.AccountID)
		return 0
	}

	delivered := 0
	for _, channel := range channels {
		if err := channel.Send(ctx, alert); err != nil {
			r.logger.Error("alert delivery failed",
				"channel", channel.Type(),
				"severity", alert.Severity,
				"metric", alert.Metric,
				"account_id", alert.AccountID,
				"error", err)
			continue
		}
		delivered++
		r.logger.Info("alert delivered",
			"channel", channel.Type(),
			"severity", alert.Severity,
			"metric", alert.Metric,
			"account_id", alert.AccountID)
	}

	return delivered
}
