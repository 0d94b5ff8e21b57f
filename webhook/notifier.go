package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

const notifyTimeout = 2 * time.Second

// Notification is the realtime payload sent on every event change
type Notification struct {
	HookKey     string       `json:"hookKey"`
	EventID     string       `json:"eventId"`
	Status      Status       `json:"status"`
	ReceivedAt  *time.Time   `json:"receivedAt,omitempty"`
	RouteResult *RouteResult `json:"routeResult,omitempty"`
	ReplayOf    *string      `json:"replayOfEventId,omitempty"`
}

// HookChannel is the channel dedicated to one endpoint
func HookChannel(projectKey, hookKey string) string {
	return projectKey + ":" + hookKey
}

// ProjectChannel is the channel receiving every endpoint of a project
func ProjectChannel(projectKey string) string {
	return projectKey
}

/* Notifier fans event changes out to the hook channel and the project channel
 * Delivery is best effort: no persistence, no acknowledgement, errors are only logged
 */
type Notifier struct {
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewNotifier creates a notifier. A nil broadcaster disables notifications.
func NewNotifier(b Broadcaster, logger zerolog.Logger) *Notifier {
	return &Notifier{
		broadcaster: b,
		logger:      logger,
	}
}

// Notify never blocks longer than notifyTimeout and never returns an error
func (n *Notifier) Notify(ctx context.Context, projectKey string, note Notification) {
	if n == nil || n.broadcaster == nil {
		return
	}

	data, err := json.Marshal(note)
	if err != nil {
		n.logger.Error().Err(err).Str("event_id", note.EventID).Msg("marshaling notification")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	for _, channel := range []string{HookChannel(projectKey, note.HookKey), ProjectChannel(projectKey)} {
		if err := n.broadcaster.Broadcast(ctx, channel, data); err != nil {
			n.logger.Warn().Err(err).
				Str("channel", channel).
				Str("event_id", note.EventID).
				Msg("broadcasting notification")
		}
	}
}
