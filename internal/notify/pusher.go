package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/pusher/pusher-http-go/v5"

	"acceptapi/internal/config"
)

// Triggerer publishes an event on a Pusher channel.
type Triggerer interface {
	Trigger(channel string, eventName string, data interface{}) error
}

// Pusher pushes the acceptance record to browsers subscribed to a channel.
type Pusher struct {
	client  Triggerer
	channel string
	event   string
}

func NewPusher(client Triggerer, channel, event string) *Pusher {
	return &Pusher{client: client, channel: channel, event: event}
}

// NewPusherChannels builds the channel on a Pusher Channels client sending through hc,
// bounded by timeout.
func NewPusherChannels(cfg config.PusherChannel, hc *http.Client, timeout time.Duration) *Pusher {
	client := &pusher.Client{
		AppID:      cfg.AppID,
		Key:        cfg.Key,
		Secret:     cfg.Secret,
		Cluster:    cfg.Cluster,
		Secure:     true,
		HTTPClient: boundedClient(hc, timeout),
	}
	return NewPusher(client, cfg.Channel, cfg.Event)
}

func (p *Pusher) Name() string { return "pusher" }

// Notify triggers the event. Like SMS, an ended ctx returns early while the request
// itself is bounded by the client timeout.
func (p *Pusher) Notify(ctx context.Context, ev Event) error {
	return withContext(ctx, func() error {
		return p.client.Trigger(p.channel, p.event, ev)
	})
}
