// Package serverinfo builds the status payload reported by /api/server-info.
package serverinfo

import (
	"errors"
	"fmt"
	"time"

	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	"github.com/google/uuid"
)

// ISOMillis matches the millisecond ISO-8601 form browsers produce with toISOString.
const ISOMillis = "2006-01-02T15:04:05.000Z07:00"

var ErrIDGeneration = errors.New("request id generation failed")

// IDGenerator returns a new unique identifier.
type IDGenerator func() (string, error)

// Provider produces ServerInfoData. The server id is generated once and
// never written again, so a Provider is safe for concurrent use.
type Provider struct {
	serverID    string
	environment string
	now         func() time.Time
	newID       IDGenerator
}

type Option func(*Provider)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithIDGenerator replaces the request id source.
func WithIDGenerator(gen IDGenerator) Option {
	return func(p *Provider) { p.newID = gen }
}

// WithServerID pins the process identifier.
func WithServerID(id string) Option {
	return func(p *Provider) { p.serverID = id }
}

func randomID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewProvider creates a provider with a fresh UUID as server id.
func NewProvider(environment string, opts ...Option) (*Provider, error) {
	p := &Provider{
		environment: environment,
		now:         time.Now,
		newID:       randomID,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.serverID == "" {
		id, err := randomID()
		if err != nil {
			return nil, fmt.Errorf("server id: %w", err)
		}
		p.serverID = id
	}
	return p, nil
}

func (p *Provider) ServerID() string    { return p.serverID }
func (p *Provider) Environment() string { return p.environment }

// Now returns the provider clock truncated to milliseconds.
func (p *Provider) Now() time.Time {
	return p.now().UTC().Truncate(time.Millisecond)
}

// Data builds the payload for one call.
func (p *Provider) Data() (models.ServerInfoData, error) {
	requestID, err := p.newID()
	if err != nil {
		return models.ServerInfoData{}, fmt.Errorf("%w: %v", ErrIDGeneration, err)
	}
	now := p.Now()
	return models.ServerInfoData{
		ServerID:    p.serverID,
		ServerTime:  now.Format(ISOMillis),
		RequestID:   requestID,
		Environment: p.environment,
		Timestamp:   now.UnixMilli(),
	}, nil
}

// Build returns the full success envelope. A panic inside payload
// construction is reported as an error.
func (p *Provider) Build(requestTime time.Time) (resp *models.ServerInfoResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("build server info: %v", r)
		}
	}()

	data, err := p.Data()
	if err != nil {
		return nil, err
	}
	return &models.ServerInfoResponse{
		Success: true,
		Data:    data,
		Metadata: models.ResponseMetadata{
			RequestTime:  requestTime.UTC().Format(ISOMillis),
			ResponseTime: p.Now().Format(ISOMillis),
		},
	}, nil
}
