package serverinfo

import (
	"errors"
	"testing"
	"time"
)

func TestServerIDStableRequestIDFresh(t *testing.T) {
	p, err := NewProvider("test")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	first, err := p.Build(time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := p.Build(time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !first.Success || !second.Success {
		t.Fatalf("expected success envelopes")
	}
	if first.Data.ServerID != second.Data.ServerID {
		t.Fatalf("server id changed: %s != %s", first.Data.ServerID, second.Data.ServerID)
	}
	if first.Data.RequestID == second.Data.RequestID {
		t.Fatalf("request id repeated: %s", first.Data.RequestID)
	}
	if second.Data.Timestamp < first.Data.Timestamp {
		t.Fatalf("timestamp went backwards: %d < %d", second.Data.Timestamp, first.Data.Timestamp)
	}
	if first.Data.Environment != "test" {
		t.Fatalf("expected environment test got %s", first.Data.Environment)
	}
}

func TestTimestampMatchesServerTime(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 10, 0, 0, 123456789, time.UTC)
	p, err := NewProvider("production", WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	resp, err := p.Build(fixed)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if resp.Data.ServerTime != "2024-01-15T10:00:00.123Z" {
		t.Fatalf("unexpected server time %s", resp.Data.ServerTime)
	}
	parsed, err := time.Parse(time.RFC3339Nano, resp.Data.ServerTime)
	if err != nil {
		t.Fatalf("parse server time: %v", err)
	}
	if parsed.UnixMilli() != resp.Data.Timestamp {
		t.Fatalf("timestamp %d does not match server time %d", resp.Data.Timestamp, parsed.UnixMilli())
	}
	if resp.Metadata.RequestTime != "2024-01-15T10:00:00.123Z" {
		t.Fatalf("unexpected request time %s", resp.Metadata.RequestTime)
	}
}

func TestIDGeneratorFailure(t *testing.T) {
	p, err := NewProvider("test", WithIDGenerator(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := p.Build(time.Now()); !errors.Is(err, ErrIDGeneration) {
		t.Fatalf("expected ErrIDGeneration got %v", err)
	}
}

func TestPanicBecomesError(t *testing.T) {
	p, err := NewProvider("test", WithIDGenerator(func() (string, error) {
		panic("boom")
	}))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	resp, err := p.Build(time.Now())
	if err == nil || resp != nil {
		t.Fatalf("expected error and nil response, got %v %v", resp, err)
	}
}

func TestWithServerID(t *testing.T) {
	p, err := NewProvider("test", WithServerID("fixed-id"))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if p.ServerID() != "fixed-id" {
		t.Fatalf("expected fixed-id got %s", p.ServerID())
	}
}
