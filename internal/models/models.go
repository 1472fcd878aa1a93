package models

import "time"

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageKind is the closed set of message payload kinds.
type MessageKind string

const (
	KindText  MessageKind = "TEXT"
	KindImage MessageKind = "IMAGE"
	KindFile  MessageKind = "FILE"
)

func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

// Tombstone replaces the content of a soft-deleted message. It is stored as
// plaintext so rendering a deleted message never needs the key.
const Tombstone = "This message was deleted"

// Chat is the conversation between exactly two participants. UserA/UserB are
// stored normalized (UserA < UserB) so each unordered pair has at most one
// row.
type Chat struct {
	ID            int       `json:"id"`
	UserA         int       `json:"user_a"`
	UserB         int       `json:"user_b"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func (c *Chat) HasParticipant(userID int) bool {
	return c.UserA == userID || c.UserB == userID
}

// OtherParticipant returns the peer of userID, or 0 if userID is not a
// participant.
func (c *Chat) OtherParticipant(userID int) int {
	switch userID {
	case c.UserA:
		return c.UserB
	case c.UserB:
		return c.UserA
	}
	return 0
}

// Message content is ciphertext at rest and plaintext on the wire. Deleted
// messages carry the plaintext tombstone instead of ciphertext.
type Message struct {
	ID            int         `json:"id"`
	ChatID        int         `json:"chat_id"`
	SenderID      int         `json:"sender_id"`
	Content       string      `json:"content"`
	Kind          MessageKind `json:"message_type"`
	AttachmentURL string      `json:"attachment_url,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	IsRead        bool        `json:"is_read"`
	ReadAt        *time.Time  `json:"read_at,omitempty"`
	IsReported    bool        `json:"is_reported"`
	IsDeleted     bool        `json:"is_deleted"`
	DeletedAt     *time.Time  `json:"deleted_at,omitempty"`
	EditedAt      *time.Time  `json:"edited_at,omitempty"`
}

type MessageReport struct {
	ID         int       `json:"id"`
	MessageID  int       `json:"message_id"`
	ReporterID int       `json:"reporter_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}
