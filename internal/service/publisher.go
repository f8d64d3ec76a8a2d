package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grip-gate/gripgate/internal/adapter/outbound/epcp"
	"github.com/grip-gate/gripgate/pkg/grip"
)

// Publisher fans an item out to every configured proxy control endpoint.
// Channel names are qualified with the configured prefix here, so callers
// always work with logical channel names. Read-only after construction.
type Publisher struct {
	prefix    string
	clients   []*epcp.Client
	logger    *slog.Logger
	publishes *prometheus.CounterVec
}

// Clients returns the per-proxy publish clients.
func (p *Publisher) Clients() []*epcp.Client {
	return p.clients
}

// Publish sends the item to all configured proxies under the prefixed
// channel name. A failure against one proxy does not stop delivery to the
// others; all failures are joined into the returned error.
func (p *Publisher) Publish(ctx context.Context, channel string, item grip.Item) error {
	item.Channel = p.prefix + channel

	var errs []error
	for _, client := range p.clients {
		if err := client.Publish(ctx, item); err != nil {
			p.countPublish("error")
			p.logger.Error("publish failed",
				"control_uri", client.ControlURI(),
				"channel", item.Channel,
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		p.countPublish("ok")
	}
	return errors.Join(errs...)
}

// PublishHTTPResponse publishes a full response body to long-polling
// subscribers of the channel.
func (p *Publisher) PublishHTTPResponse(ctx context.Context, channel string, body []byte) error {
	item := grip.NewItem("", uuid.NewString(), "", grip.HTTPResponseFormat{Body: body})
	return p.Publish(ctx, channel, item)
}

// PublishHTTPStream publishes a body chunk to streaming subscribers of the
// channel.
func (p *Publisher) PublishHTTPStream(ctx context.Context, channel string, content []byte) error {
	item := grip.NewItem("", uuid.NewString(), "", grip.HTTPStreamFormat{Content: content})
	return p.Publish(ctx, channel, item)
}

// PublishWSMessage publishes a text message to WebSocket-over-HTTP
// subscribers of the channel.
func (p *Publisher) PublishWSMessage(ctx context.Context, channel string, content []byte) error {
	item := grip.NewItem("", uuid.NewString(), "", grip.WebSocketMessageFormat{Content: content})
	return p.Publish(ctx, channel, item)
}

func (p *Publisher) countPublish(result string) {
	if p.publishes != nil {
		p.publishes.WithLabelValues(result).Inc()
	}
}
