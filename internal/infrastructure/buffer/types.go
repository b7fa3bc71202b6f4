package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntityAudit marks buffered audit events.
const EntityAudit = "audit"

// Item is a write that could not reach Postgres and waits for the next drain.
type Item struct {
	ID        string          `json:"id"`
	Entity    string          `json:"entity"`
	Data      json.RawMessage `json:"data"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Entity == "" {
		i.Entity = EntityAudit
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
