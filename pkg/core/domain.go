// Package core holds the content domain: entries, the storage contracts and
// the Service that applies business rules on top of any storage adapter.
package core

import (
	"fmt"
	"time"

	"github.com/ortholine/inlay/pkg/blocks"
)

// Metadata represents the flexible key-value pairs associated with an entry.
type Metadata map[string]any

// Kind is the section of the site an entry belongs to.
type Kind string

const (
	KindBlog      Kind = "blog"
	KindCaseStudy Kind = "case-study"
	KindEbook     Kind = "ebook"
	KindCourse    Kind = "course"
	KindPage      Kind = "page"
)

// Kinds lists every valid kind.
var Kinds = []Kind{KindBlog, KindCaseStudy, KindEbook, KindCourse, KindPage}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if k == v {
			return true
		}
	}
	return false
}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Status is the publication state of an entry.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Entry is the central entity of the domain: one piece of editorial content.
// Body is the editor's block document; HTML is Body rendered at save time, or
// legacy HTML for entries that were never opened in the block editor.
type Entry struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug,omitempty"`
	Author    string          `json:"author,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	Status    Status          `json:"status,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Body      blocks.Document `json:"body"`
	HTML      string          `json:"html,omitempty"`
	Metadata  Metadata        `json:"metadata,omitempty"`
}

// HasTag reports whether the entry is tagged with tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Summary is the indexed subset of an Entry used for listings.
type Summary struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Status    Status    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summarize extracts the listing fields of e.
func (e Entry) Summarize() Summary {
	return Summary{
		ID:        e.ID,
		Kind:      e.Kind,
		Title:     e.Title,
		Slug:      e.Slug,
		Tags:      e.Tags,
		Status:    e.Status,
		UpdatedAt: e.UpdatedAt,
	}
}

// EventType represents the type of change in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the store.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
