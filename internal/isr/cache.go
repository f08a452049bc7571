// Package isr serves rendered pages from stored snapshots and regenerates
// them in the background once they are older than their revalidate interval.
package isr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	"github.com/devghori1264/aerophoenix/showcase/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrUnknownKey = errors.New("isr: unknown page key")

type Status string

const (
	StatusHit   Status = "HIT"
	StatusStale Status = "STALE"
	StatusMiss  Status = "MISS"
)

const (
	ReasonMiss      = "miss"
	ReasonStale     = "stale"
	ReasonOnDemand  = "on-demand"
	ReasonPrerender = "prerender"
)

// Renderer produces the full HTML document for one page.
type Renderer func(ctx context.Context) ([]byte, error)

// Page is a path served through the cache.
type Page struct {
	Key        string
	Revalidate time.Duration
	Render     Renderer
}

// EventPublisher receives one event per successful regeneration.
type EventPublisher interface {
	PublishRevalidation(ctx context.Context, ev models.RevalidationEvent) error
}

type Cache struct {
	store        storage.Store
	logger       *zap.Logger
	publisher    EventPublisher
	tracer       trace.Tracer
	now          func() time.Time
	regenTimeout time.Duration
	serverID     string

	mu       sync.Mutex
	pages    map[string]Page
	inflight map[string]struct{}
	closed   bool
	wg       sync.WaitGroup
}

type Option func(*Cache)

func WithPublisher(p EventPublisher) Option {
	return func(c *Cache) { c.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithRegenTimeout(d time.Duration) Option {
	return func(c *Cache) { c.regenTimeout = d }
}

// WithServerID tags published events with the process identifier.
func WithServerID(id string) Option {
	return func(c *Cache) { c.serverID = id }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Cache) { c.tracer = t }
}

func New(store storage.Store, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:        store,
		logger:       logger,
		tracer:       otel.Tracer("showcase/isr"),
		now:          time.Now,
		regenTimeout: 10 * time.Second,
		pages:        make(map[string]Page),
		inflight:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds or replaces a page.
func (c *Cache) Register(p Page) {
	c.mu.Lock()
	c.pages[p.Key] = p
	c.mu.Unlock()
}

func (c *Cache) page(key string) (Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[key]
	return p, ok
}

// Keys lists registered page keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.pages))
	for k := range c.pages {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Serve returns the stored snapshot for key, rendering it on a miss and
// scheduling a background regeneration when it is stale.
func (c *Cache) Serve(ctx context.Context, key string) (*models.PageSnapshot, Status, error) {
	p, ok := c.page(key)
	if !ok {
		return nil, "", ErrUnknownKey
	}

	snap, err := c.store.GetPage(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("snapshot read failed, rendering", zap.String("key", key), zap.Error(err))
		}
		snap, err = c.regenerate(ctx, p, ReasonMiss)
		if err != nil {
			return nil, "", err
		}
		lookups.WithLabelValues(string(StatusMiss)).Inc()
		return snap, StatusMiss, nil
	}

	if snap.Age(c.now()) < p.Revalidate {
		lookups.WithLabelValues(string(StatusHit)).Inc()
		return snap, StatusHit, nil
	}

	c.regenerateInBackground(p)
	lookups.WithLabelValues(string(StatusStale)).Inc()
	return snap, StatusStale, nil
}

// Revalidate regenerates key immediately.
func (c *Cache) Revalidate(ctx context.Context, key string) (*models.PageSnapshot, error) {
	p, ok := c.page(key)
	if !ok {
		return nil, ErrUnknownKey
	}
	return c.regenerate(ctx, p, ReasonOnDemand)
}

// Purge drops the stored snapshot for key so the next request renders it
// again as a MISS.
func (c *Cache) Purge(ctx context.Context, key string) error {
	if _, ok := c.page(key); !ok {
		return ErrUnknownKey
	}
	if err := c.store.DeletePage(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("purge %s: %w", key, err)
	}
	return nil
}

// Prerender renders every registered page.
func (c *Cache) Prerender(ctx context.Context) error {
	for _, key := range c.Keys() {
		p, _ := c.page(key)
		if _, err := c.regenerate(ctx, p, ReasonPrerender); err != nil {
			return fmt.Errorf("prerender %s: %w", key, err)
		}
	}
	return nil
}

// Wait blocks until all background regenerations have finished. It must
// not run concurrently with Serve; use Close while requests may still arrive.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Close stops scheduling background regenerations and waits for the running
// ones. Stale snapshots are still served afterwards, just never refreshed.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Cache) regenerateInBackground(p Page) {
	c.mu.Lock()
	if _, busy := c.inflight[p.Key]; busy || c.closed {
		c.mu.Unlock()
		return
	}
	c.inflight[p.Key] = struct{}{}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, p.Key)
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), c.regenTimeout)
		defer cancel()
		if _, err := c.regenerate(ctx, p, ReasonStale); err != nil {
			c.logger.Error("background regeneration failed, keeping stale snapshot",
				zap.String("key", p.Key), zap.Error(err))
		}
	}()
}

func (c *Cache) regenerate(ctx context.Context, p Page, reason string) (*models.PageSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, "isr.regenerate", trace.WithAttributes(
		attribute.String("isr.key", p.Key),
		attribute.String("isr.reason", reason),
	))
	defer span.End()

	start := time.Now()
	html, err := p.Render(ctx)
	elapsed := time.Since(start)
	regenSeconds.Observe(elapsed.Seconds())
	if err != nil {
		regenerations.WithLabelValues(reason, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, fmt.Errorf("render %s: %w", p.Key, err)
	}

	snap := &models.PageSnapshot{
		Key:         p.Key,
		HTML:        html,
		GeneratedAt: c.now().UTC(),
		Revalidate:  p.Revalidate,
	}
	if err := c.store.SavePage(ctx, snap); err != nil {
		// the fresh rendering is still served
		c.logger.Warn("snapshot save failed", zap.String("key", p.Key), zap.Error(err))
	}
	regenerations.WithLabelValues(reason, "ok").Inc()

	c.logger.Debug("page regenerated",
		zap.String("key", p.Key),
		zap.String("reason", reason),
		zap.Duration("took", elapsed))

	if c.publisher != nil {
		ev := models.RevalidationEvent{
			Event:       "page.revalidated",
			Key:         p.Key,
			Reason:      reason,
			ServerID:    c.serverID,
			GeneratedAt: snap.GeneratedAt,
			DurationMs:  elapsed.Milliseconds(),
		}
		if err := c.publisher.PublishRevalidation(ctx, ev); err != nil {
			c.logger.Warn("publish revalidation failed", zap.String("key", p.Key), zap.Error(err))
		}
	}
	return snap, nil
}
