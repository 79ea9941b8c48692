package notification

import (
	"context"
	"fmt"

	"tableside/internal/logger"
	"tableside/internal/messaging"
	"tableside/internal/models"
)

// Subscriber consumes order status events and turns them into guest-facing
// notifications. In production the display would be a push channel or a
// table-side screen; here each notification is printed and logged.
type Subscriber struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewSubscriber creates a notification subscriber
func NewSubscriber(consumer *messaging.Consumer, log *logger.Logger) *Subscriber {
	return &Subscriber{consumer: consumer, logger: log}
}

// Start consumes status events until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info("subscriber_started", "", "Notification subscriber started", nil)
	return s.consumer.StartConsuming(ctx, s.handleStatusEvent)
}

// Close stops the underlying consumer
func (s *Subscriber) Close() error {
	return s.consumer.Close()
}

func (s *Subscriber) handleStatusEvent(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var event models.StatusUpdateMessage
	if err := messaging.ParseMessage(body, &event); err != nil {
		s.logger.Error("message_parsing_failed", requestID, "Failed to parse status event", err, nil)
		return fmt.Errorf("failed to parse status event: %w", err)
	}

	fmt.Println(FormatNotification(&event))

	s.logger.Info("notification_displayed", requestID, "Status notification displayed",
		map[string]any{
			"order_number": event.OrderNumber,
			"table_id":     event.TableID,
			"old_status":   event.OldStatus,
			"new_status":   event.NewStatus,
			"changed_by":   event.ChangedBy,
		})
	return nil
}

// FormatNotification renders one status event as a guest-readable line
func FormatNotification(event *models.StatusUpdateMessage) string {
	timestamp := event.Timestamp.Format("2006-01-02 15:04:05")

	switch event.NewStatus {
	case models.StatusConfirmed:
		if event.EstimatedReadyAt != nil {
			return fmt.Sprintf("[%s] Order %s for table %s is confirmed. Estimated ready at %s.",
				timestamp, event.OrderNumber, event.TableID, event.EstimatedReadyAt.Format("15:04"))
		}
		return fmt.Sprintf("[%s] Order %s for table %s is confirmed.",
			timestamp, event.OrderNumber, event.TableID)
	case models.StatusPreparing:
		return fmt.Sprintf("[%s] Order %s is being prepared.", timestamp, event.OrderNumber)
	case models.StatusReady:
		return fmt.Sprintf("[%s] Order %s is ready! It is on its way to table %s.",
			timestamp, event.OrderNumber, event.TableID)
	case models.StatusDelivered:
		return fmt.Sprintf("[%s] Order %s has been delivered. Enjoy your meal!",
			timestamp, event.OrderNumber)
	case models.StatusCancelled:
		return fmt.Sprintf("[%s] Order %s has been cancelled by %s.",
			timestamp, event.OrderNumber, event.ChangedBy)
	default:
		return fmt.Sprintf("[%s] Order %s is now %s.", timestamp, event.OrderNumber, event.NewStatus)
	}
}
