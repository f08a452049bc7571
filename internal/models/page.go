package models

import "time"

// Post is a demo article served through incremental regeneration.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
	ReadTime    string    `json:"readTime"`
	// HTML is the rendered Markdown body.
	HTML string `json:"-"`
}

// PageSnapshot is one stored rendering of a path.
type PageSnapshot struct {
	Key         string        `json:"key"`
	HTML        []byte        `json:"html"`
	GeneratedAt time.Time     `json:"generated_at"`
	Revalidate  time.Duration `json:"revalidate"`
}

// Age reports how long ago the snapshot was generated.
func (s *PageSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.GeneratedAt)
}

// RevalidationEvent is published whenever a page snapshot is regenerated.
type RevalidationEvent struct {
	Event       string    `json:"event"`
	Key         string    `json:"key"`
	Reason      string    `json:"reason"`
	ServerID    string    `json:"server_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	DurationMs  int64     `json:"duration_ms"`
}
