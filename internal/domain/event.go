package domain

import (
	"context"
	"time"
)

// Image is a picture attached to an event. ImageURL points into object storage.
// swagger:model Image
type Image struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ImageURL  string    `json:"image_url"`
	IsDisplay bool      `json:"is_display"`
}

// Event is a post about a performance or club activity. Drafts have IsDraft set;
// PublishedAt is set on the first transition to published and never cleared.
// swagger:model Event
type Event struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at"`
	EventName   string     `json:"event_name"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	IsDraft     bool       `json:"is_draft"`
	Images      []Image    `json:"images"`
	AuthorIDs   []string   `json:"authors"`
}

// DisplayImage returns the cover image, if any.
func (e *Event) DisplayImage() (Image, bool) {
	for _, img := range e.Images {
		if img.IsDisplay {
			return img, true
		}
	}
	return Image{}, false
}

// HasAuthor reports whether adminID is linked to the event.
func (e *Event) HasAuthor(adminID string) bool {
	for _, id := range e.AuthorIDs {
		if id == adminID {
			return true
		}
	}
	return false
}

// NewImageInput describes an image the client attached while authoring. ID is optional;
// the server assigns one when empty.
type NewImageInput struct {
	ID        string `json:"id,omitempty"`
	ImageURL  string `json:"image_url"`
	IsDisplay bool   `json:"is_display"`
}

// CreateEventInput is the payload for creating an event.
type CreateEventInput struct {
	EventName   string
	Date        string
	Description string
	Content     string
	IsDraft     bool
	Images      []NewImageInput
}

// EventUpdate is a partial update of an event plus image reconciliation instructions.
// Nil fields are left unchanged.
type EventUpdate struct {
	EventName         *string
	Date              *string
	Description       *string
	Content           *string
	IsDraft           *bool
	RemovedImageIDs   []string
	NewImages         []NewImageInput
	NewDisplayImageID string
}

// EventChanges is what a repository must persist for one update: the new event state,
// the images detached from it and the images newly attached.
type EventChanges struct {
	Event   *Event
	Removed []Image
	Added   []Image
}

// EventRepository defines the interface for event storage. Writes are atomic per call.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Save(ctx context.Context, changes EventChanges) error
	ListPublished(ctx context.Context, limit int) ([]*Event, error)
	List(ctx context.Context, params PaginationParams) ([]*Event, error)
	Count(ctx context.Context) (int, error)
	// Delete removes the event and its images and returns the images that were detached.
	Delete(ctx context.Context, id string) ([]Image, error)
}

// ImageUpload is a presigned upload slot for an event image.
type ImageUpload struct {
	UploadURL string    `json:"upload_url"`
	ImageURL  string    `json:"image_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventService defines the business logic for event posts.
type EventService interface {
	CreateEvent(ctx context.Context, input CreateEventInput, authorID string) (string, error)
	UpdateEvent(ctx context.Context, eventID string, update EventUpdate, editorAdminID string) (*Event, error)
	// GetEvent returns the event. viewer is nil for anonymous callers.
	GetEvent(ctx context.Context, eventID string, viewer *Identity) (*Event, error)
	ListPublishedEvents(ctx context.Context, limit int) ([]*Event, error)
	ListEvents(ctx context.Context, params PaginationParams) ([]*Event, int, error)
	DeleteEvent(ctx context.Context, eventID string) error
	PresignImageUpload(ctx context.Context, eventKey, filename string) (*ImageUpload, error)
}
