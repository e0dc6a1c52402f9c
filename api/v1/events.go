package v1

import (
	"time"

	"github.com/google/uuid"
)

type Header struct {
	ID          string    `json:"id"`          // GUID representing the event
	PublishedAt time.Time `json:"publishedAt"` // Time when event was published
}

func NewHeader() Header {
	return Header{
		ID:          uuid.NewString(),
		PublishedAt: time.Now(),
	}
}

// LabelCreated is published after a shipping label has been issued by
// the carrier. Publishing is best-effort: a label exists whether or not
// the event made it out.
type LabelCreated struct {
	Header Header      `json:"header"`
	Order  OrderRecord `json:"order"`
	Label  LabelResult `json:"label"`
}

// LabelEventError wraps an event that could not be processed, for the
// dead letter queue.
type LabelEventError struct {
	Header Header       `json:"header"`
	Event  LabelCreated `json:"event"`
}
