package store

import (
	"errors"
	"time"

	"github.com/scraplink/chatcore/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByID(id int) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)

	// Chat operations. Participant pairs are unordered: EnsureChat and
	// GetChatByParticipants accept the two ids in either order.
	EnsureChat(userA, userB int) (*models.Chat, error)
	GetChat(id int) (*models.Chat, error)
	GetChatByParticipants(userA, userB int) (*models.Chat, error)
	ListUserChats(userID int) ([]models.Chat, error)
	TouchLastMessage(chatID int, at time.Time) error

	// Message operations
	CreateMessage(m *models.Message) error
	GetMessage(id int) (*models.Message, error)
	ListMessages(chatID int) ([]models.Message, error)
	MarkMessagesRead(chatID, readerID int, at time.Time) ([]int, error)
	UpdateMessageContent(id int, content string, editedAt time.Time) error
	SoftDeleteMessage(id int, tombstone string, at time.Time) error
	ClearMessages(chatID int) (int64, error)
	CountUnread(userID int) (int, error)

	// Moderation
	MarkReported(messageID int) error
	CreateReport(r *models.MessageReport) error
	HasReport(messageID, reporterID int) (bool, error)

	// Block policy
	BlockUser(blockerID, blockedID int) error
	UnblockUser(blockerID, blockedID int) error
	IsBlocked(userA, userB int) (bool, error)
}
