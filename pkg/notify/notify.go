package notify

import (
	"context"
	"fmt"

	"github.com/cuemby/hostkeeper/pkg/events"
	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/rs/zerolog"
)

// Notification is a team-addressed message about a server
type Notification struct {
	Kind     events.EventType
	ServerID string
	Message  string
	Metadata map[string]string
}

// ContainerRestarted is emitted after an infrastructure container was (re)started
func ContainerRestarted(container string, serverID string) Notification {
	return Notification{
		Kind:     events.EventContainerRestarted,
		ServerID: serverID,
		Message:  fmt.Sprintf("Container %s was restarted on server %s", container, serverID),
		Metadata: map[string]string{"container": container},
	}
}

// DiskUsageHigh is emitted when a server's Docker disk usage crosses its threshold
func DiskUsageHigh(serverID string, usedBytes, thresholdBytes int64) Notification {
	return Notification{
		Kind:     events.EventDiskUsageHigh,
		ServerID: serverID,
		Message:  fmt.Sprintf("Disk usage on server %s is %d bytes (threshold %d)", serverID, usedBytes, thresholdBytes),
		Metadata: map[string]string{
			"used_bytes":      fmt.Sprint(usedBytes),
			"threshold_bytes": fmt.Sprint(thresholdBytes),
		},
	}
}

// Notifier delivers notifications to a team
type Notifier interface {
	Notify(ctx context.Context, teamID string, n Notification) error
}

// BrokerNotifier publishes notifications on the event broker
type BrokerNotifier struct {
	broker *events.Broker
	logger zerolog.Logger
}

// NewBrokerNotifier creates a notifier backed by broker
func NewBrokerNotifier(broker *events.Broker) *BrokerNotifier {
	return &BrokerNotifier{
		broker: broker,
		logger: log.WithComponent("notify"),
	}
}

// Notify publishes n as an event addressed to teamID
func (n *BrokerNotifier) Notify(ctx context.Context, teamID string, notification Notification) error {
	if teamID == "" {
		return fmt.Errorf("notification %s has no team", notification.Kind)
	}
	err := n.broker.PublishContext(ctx, &events.Event{
		Type:     notification.Kind,
		ServerID: notification.ServerID,
		TeamID:   teamID,
		Message:  notification.Message,
		Metadata: notification.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", notification.Kind, err)
	}

	n.logger.Info().
		Str("team_id", teamID).
		Str("server_id", notification.ServerID).
		Str("kind", string(notification.Kind)).
		Msg(notification.Message)
	return nil
}
