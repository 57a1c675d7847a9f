package notification

import (
	"encoding/json"
	"fmt"
)

// Variant is a display hint for clients.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSuccess     Variant = "success"
	VariantDestructive Variant = "destructive"
)

// Task references the unit of work a notification is about.
type Task struct {
	Identifier string `json:"identifier" validate:"required,max=256"`
	FileName   string `json:"fileName,omitempty" validate:"max=512"`
}

// Notification is the stored and streamed representation.
// Everything except Read is immutable once created.
type Notification struct {
	ID        string  `json:"id"`
	CreatedAt int64   `json:"createdAt"` // epoch milliseconds
	Read      bool    `json:"read"`
	Text      string  `json:"text"`
	Task      *Task   `json:"task,omitempty"`
	Variant   Variant `json:"variant,omitempty"`
	IsGlobal  bool    `json:"isGlobal,omitempty"`
}

// ReadCopy returns the personalized copy recorded in a recipient's own list
// to shadow a shared entry.
func (n Notification) ReadCopy() Notification {
	cp := n
	cp.Read = true
	if n.Task != nil {
		t := *n.Task
		cp.Task = &t
	}
	return cp
}

func (n Notification) encode() (string, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encoding notification %s: %w", n.ID, err)
	}
	return string(b), nil
}

func decode(raw string) (Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return Notification{}, err
	}
	if n.ID == "" {
		return Notification{}, fmt.Errorf("entry has no id")
	}
	return n, nil
}

// CreateRequest is the producer-facing payload. ID and CreatedAt are defaulted when absent.
type CreateRequest struct {
	ID        string  `json:"id" validate:"omitempty,max=128"`
	CreatedAt *int64  `json:"createdAt" validate:"omitempty,gte=0"`
	Read      bool    `json:"read"`
	Text      string  `json:"text" validate:"required,max=4000"`
	Task      *Task   `json:"task,omitempty"`
	Variant   Variant `json:"variant,omitempty" validate:"omitempty,oneof=default success destructive"`
	IsGlobal  bool    `json:"isGlobal,omitempty"`
	// Recipient targets another recipient's personal list; empty means the caller.
	Recipient string `json:"recipient,omitempty" validate:"omitempty,recipient"`
}

// DeleteResult reports what DeleteOne did for one id.
// Neither flag set means the id was not visible to the recipient.
type DeleteResult struct {
	ID              string `json:"id"`
	PersonalDeleted bool   `json:"personalDeleted"`
	GlobalMasked    bool   `json:"globalMasked"`
}

// DeleteAllResult counts the personal entries removed and the global entries masked.
type DeleteAllResult struct {
	PersonalDeleted int64 `json:"personalDeleted"`
	GlobalMasked    int64 `json:"globalMasked"`
}

// MarkReadResult reports whether a single mark-read changed anything.
type MarkReadResult struct {
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
}

// Event types emitted on the stream.
const (
	EventConnected    = "connected"
	EventNotification = "notification"
)

const (
	globalListKey = "notifications:global"
	globalChannel = "notifications:events:global"
)

func personalListKey(recipient string) string {
	return "notifications:user:" + recipient
}

func personalChannel(recipient string) string {
	return "notifications:events:user:" + recipient
}
