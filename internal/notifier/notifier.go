// Package notifier turns booking confirmations into member-facing
// messages.
package notifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/driesverstreepen/studio-reservations/internal/queue"
)

// Notifier delivers a message to a member.  Swap the implementation for
// email or push without touching the consumer.
type Notifier interface {
	Notify(ctx context.Context, recipientID, subject, message string) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log.Named("notify")}
}

func (n *LogNotifier) Notify(_ context.Context, recipientID, subject, message string) error {
	n.log.Info(subject, zap.String("recipient_id", recipientID), zap.String("message", message))
	return nil
}

// Dispatcher adapts a Notifier to the queue consumer.
type Dispatcher struct {
	notifier Notifier
}

func NewDispatcher(n Notifier) *Dispatcher {
	return &Dispatcher{notifier: n}
}

func (d *Dispatcher) HandleBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return d.notifier.Notify(ctx, ev.RequesterID, "Booking confirmed", ConfirmationMessage(ev))
}

// ConfirmationMessage renders the text sent for a confirmed booking.
func ConfirmationMessage(ev queue.BookingConfirmedEvent) string {
	title := ev.OfferingTitle
	if title == "" {
		title = ev.OfferingID
	}
	msg := fmt.Sprintf("You are booked for %q, session %s.", title, ev.SessionMarker)
	if ev.DependentID != nil {
		msg = fmt.Sprintf("Your dependent is booked for %q, session %s.", title, ev.SessionMarker)
	}
	switch ev.CreditsRemaining {
	case 0:
		return msg + " This was the last credit in the pool."
	case 1:
		return msg + " 1 credit left."
	default:
		return fmt.Sprintf("%s %d credits left.", msg, ev.CreditsRemaining)
	}
}
