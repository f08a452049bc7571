package natsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectRevalidated carries one RevalidationEvent per regenerated page.
const SubjectRevalidated = "showcase.pages.revalidated"

type Publisher struct {
	nc *nats.Conn
}

func NewPublisher(url string, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("aerophoenix-showcase"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc}, nil
}

func (p *Publisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if p.nc == nil || p.nc.IsClosed() {
		return fmt.Errorf("nats not connected")
	}
	return p.nc.Publish(subject, payload)
}

// PublishRevalidation encodes ev and sends it on SubjectRevalidated.
func (p *Publisher) PublishRevalidation(ctx context.Context, ev models.RevalidationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Publish(ctx, SubjectRevalidated, payload)
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}
