package chat

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/scraplink/chatcore/internal/crypto"
	"github.com/scraplink/chatcore/internal/metrics"
	"github.com/scraplink/chatcore/internal/models"
	"github.com/scraplink/chatcore/internal/realtime"
	"github.com/scraplink/chatcore/internal/store"
)

// EditWindow bounds how long after sending a message may still be edited.
const EditWindow = 15 * time.Minute

// UnreadablePlaceholder replaces content that no longer decrypts (e.g. the
// key changed). The listing still succeeds.
const UnreadablePlaceholder = "[unreadable message]"

var (
	ErrForbidden       = errors.New("chat: forbidden")
	ErrNotFound        = errors.New("chat: not found")
	ErrGone            = errors.New("chat: message deleted")
	ErrBlocked         = errors.New("chat: user is blocked")
	ErrEmptyMessage    = errors.New("chat: message requires content or attachment")
	ErrInvalidKind     = errors.New("chat: invalid message kind")
	ErrEditWindow      = errors.New("chat: edit window elapsed")
	ErrSelfReport      = errors.New("chat: cannot report own message")
	ErrAlreadyReported = errors.New("chat: already reported")
)

// Publisher is the push side of the Event Broadcaster.
type Publisher interface {
	Publish(userID int, ev realtime.Event)
}

// Service orchestrates the messaging core: it validates, encrypts, persists
// and only then publishes. An event consumer can therefore always re-fetch
// the referenced message by id.
type Service struct {
	store  store.Store
	cipher *crypto.Cipher
	hub    Publisher
	now    func() time.Time
}

func NewService(st store.Store, cipher *crypto.Cipher, hub Publisher) *Service {
	return &Service{store: st, cipher: cipher, hub: hub, now: time.Now}
}

// SendMessage creates the chat lazily, encrypts content before the write and
// returns the plaintext-view message. The recipient's event is published
// strictly after the row is durable.
func (s *Service) SendMessage(senderID, recipientID int, content string, kind models.MessageKind, attachmentURL string) (*models.Message, error) {
	if senderID == recipientID {
		return nil, ErrForbidden
	}
	if kind == "" {
		kind = models.KindText
	}
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	content = strings.TrimSpace(content)
	if content == "" && attachmentURL == "" {
		return nil, ErrEmptyMessage
	}

	blocked, err := s.store.IsBlocked(senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("check block: %w", err)
	}
	if blocked {
		return nil, ErrBlocked
	}

	chat, err := s.store.EnsureChat(senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("ensure chat: %w", err)
	}

	ciphertext, err := s.cipher.Encrypt(content)
	if err != nil {
		// Hard failure: confidentiality never degrades silently.
		return nil, fmt.Errorf("encrypt message: %w", err)
	}

	msg := &models.Message{
		ChatID:        chat.ID,
		SenderID:      senderID,
		Content:       ciphertext,
		Kind:          kind,
		AttachmentURL: attachmentURL,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.CreateMessage(msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	if err := s.store.TouchLastMessage(chat.ID, msg.CreatedAt); err != nil {
		log.Printf("chat: touch last message for chat %d: %v", chat.ID, err)
	}
	metrics.MessagesSent.Inc()

	plain := *msg
	plain.Content = content
	s.hub.Publish(recipientID, realtime.MessageEvent(chat.ID, plain))

	return &plain, nil
}

// ListMessages returns the chat's messages in insertion order with content
// decrypted. Rows that fail to decrypt degrade to a placeholder; deleted
// rows carry the plaintext tombstone and are passed through untouched.
func (s *Service) ListMessages(chatID, requesterID int) ([]models.Message, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !chat.HasParticipant(requesterID) {
		return nil, ErrForbidden
	}

	messages, err := s.store.ListMessages(chatID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		s.decryptView(&messages[i])
	}
	return messages, nil
}

func (s *Service) decryptView(m *models.Message) {
	if m.IsDeleted {
		return
	}
	plaintext, err := s.cipher.Decrypt(m.Content)
	if err != nil {
		log.Printf("chat: message %d undecryptable: %v", m.ID, err)
		m.Content = UnreadablePlaceholder
		return
	}
	m.Content = plaintext
}

// Conversation resolves the chat for (requester, other) and lists it. A
// never-started conversation yields an empty slice, not an error.
func (s *Service) Conversation(requesterID, otherID int) ([]models.Message, error) {
	chat, err := s.store.GetChatByParticipants(requesterID, otherID)
	if errors.Is(err, store.ErrNotFound) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.ListMessages(chat.ID, requesterID)
}

// MarkRead flips all unread messages addressed to the reader. Idempotent:
// a second call observes no unread rows and publishes nothing.
func (s *Service) MarkRead(chatID, readerID int) ([]int, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !chat.HasParticipant(readerID) {
		return nil, ErrForbidden
	}

	ids, err := s.store.MarkMessagesRead(chatID, readerID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		s.hub.Publish(chat.OtherParticipant(readerID), realtime.ReadEvent(chatID, ids))
	}
	return ids, nil
}

// MarkConversationRead is MarkRead addressed by peer instead of chat id.
// No-op when no conversation exists yet.
func (s *Service) MarkConversationRead(readerID, otherID int) ([]int, error) {
	chat, err := s.store.GetChatByParticipants(readerID, otherID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.MarkRead(chat.ID, readerID)
}

// EditMessage re-encrypts new content. Only the sender may edit, deleted
// messages are gone, and edits are limited to the edit window.
func (s *Service) EditMessage(messageID, editorID int, newContent string) (*models.Message, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, ErrEmptyMessage
	}

	msg, err := s.store.GetMessage(messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if msg.SenderID != editorID {
		return nil, ErrForbidden
	}
	if msg.IsDeleted {
		return nil, ErrGone
	}
	if s.now().Sub(msg.CreatedAt) > EditWindow {
		return nil, ErrEditWindow
	}

	ciphertext, err := s.cipher.Encrypt(newContent)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}
	editedAt := s.now().UTC()
	if err := s.store.UpdateMessageContent(messageID, ciphertext, editedAt); err != nil {
		return nil, err
	}

	msg.Content = newContent
	msg.EditedAt = &editedAt
	return msg, nil
}

// DeleteMessage tombstones the sender's own message. Deleting an already
// deleted or missing message is a no-op, not an error.
func (s *Service) DeleteMessage(messageID, requesterID int) error {
	msg, err := s.store.GetMessage(messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if msg.SenderID != requesterID {
		return ErrForbidden
	}
	if msg.IsDeleted {
		return nil
	}
	return s.store.SoftDeleteMessage(messageID, models.Tombstone, s.now().UTC())
}

// ReportMessage records a moderation flag. Delivery is unaffected.
func (s *Service) ReportMessage(messageID, reporterID int, reason string) error {
	msg, err := s.store.GetMessage(messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if msg.SenderID == reporterID {
		return ErrSelfReport
	}

	reported, err := s.store.HasReport(messageID, reporterID)
	if err != nil {
		return err
	}
	if reported {
		return ErrAlreadyReported
	}

	report := &models.MessageReport{
		MessageID:  messageID,
		ReporterID: reporterID,
		Reason:     reason,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateReport(report); err != nil {
		return err
	}
	return s.store.MarkReported(messageID)
}

// ClearChat bulk-deletes every message in the chat. Irrecoverable, distinct
// from per-message tombstoning.
func (s *Service) ClearChat(chatID, requesterID int) error {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !chat.HasParticipant(requesterID) {
		return ErrForbidden
	}
	_, err = s.store.ClearMessages(chatID)
	return err
}

// Typing forwards a transient typing signal to the peer. Nothing persists.
func (s *Service) Typing(chatID, userID int) error {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrForbidden
	}
	s.hub.Publish(chat.OtherParticipant(userID), realtime.TypingEvent(chatID, userID))
	return nil
}

func (s *Service) UnreadCount(userID int) (int, error) {
	return s.store.CountUnread(userID)
}

func (s *Service) BlockUser(blockerID, blockedID int) error {
	if blockerID == blockedID {
		return ErrForbidden
	}
	return s.store.BlockUser(blockerID, blockedID)
}

func (s *Service) UnblockUser(blockerID, blockedID int) error {
	return s.store.UnblockUser(blockerID, blockedID)
}

func (s *Service) ListChats(userID int) ([]models.Chat, error) {
	return s.store.ListUserChats(userID)
}
