package application

import (
	"context"
	"log/slog"
)

// Notification kinds emitted by the appointment lifecycle.
const (
	NotificationAppointmentApproved    = "appointment_approved"
	NotificationAppointmentCancelled   = "appointment_cancelled"
	NotificationAppointmentRescheduled = "appointment_rescheduled"
)

// NotificationPayload carries the identifiers a delivery channel needs.
type NotificationPayload struct {
	FirmID      string
	RequestID   string
	ClientID    string
	StaffID     string
	EventID     string
	SuccessorID string
}

// Notifier delivers appointment lifecycle notifications. Delivery is
// best-effort: services log failures and never propagate them.
type Notifier interface {
	Notify(ctx context.Context, kind string, payload NotificationPayload) error
}

// LogNotifier writes notifications to the structured log. It stands in for
// an external delivery channel.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: defaultLogger(logger)}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, kind string, payload NotificationPayload) error {
	logger := serviceLogger(ctx, n.logger, "notifier", "notify")
	logger.InfoContext(ctx, "notification",
		"kind", kind,
		"firm_id", payload.FirmID,
		"request_id", payload.RequestID,
		"client_id", payload.ClientID,
		"staff_id", payload.StaffID,
		"event_id", payload.EventID,
	)
	return nil
}

func notifyBestEffort(ctx context.Context, notifier Notifier, logger *slog.Logger, kind string, payload NotificationPayload) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, kind, payload); err != nil {
		logger.WarnContext(ctx, "notification delivery failed", "kind", kind, "error", err)
	}
}
