package sqlstore

import (
	"errors"
	"testing"
	"time"

	"github.com/scraplink/chatcore/internal/models"
	"github.com/scraplink/chatcore/internal/store"
)

func seedChat(t *testing.T) (chatID, alice, bob int) {
	t.Helper()
	alice = mustCreateUser(t, "alice")
	bob = mustCreateUser(t, "bob")
	chat, err := testStore.EnsureChat(alice, bob)
	if err != nil {
		t.Fatalf("EnsureChat failed: %v", err)
	}
	return chat.ID, alice, bob
}

func seedMessage(t *testing.T, chatID, senderID int, content string, at time.Time) *models.Message {
	t.Helper()
	m := &models.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Kind:      models.KindText,
		CreatedAt: at,
	}
	if err := testStore.CreateMessage(m); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	return m
}

func TestListMessagesOrdering(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	chatID, alice, bob := seedChat(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of chronological order; listing must sort by time.
	seedMessage(t, chatID, alice, "third", base.Add(2*time.Second))
	seedMessage(t, chatID, bob, "first", base)
	seedMessage(t, chatID, alice, "second", base.Add(time.Second))

	// Equal timestamps fall back to insertion id.
	seedMessage(t, chatID, bob, "fourth", base.Add(3*time.Second))
	seedMessage(t, chatID, bob, "fifth", base.Add(3*time.Second))

	messages, err := testStore.ListMessages(chatID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}

	want := []string{"first", "second", "third", "fourth", "fifth"}
	if len(messages) != len(want) {
		t.Fatalf("Expected %d messages, got %d", len(want), len(messages))
	}
	for i, w := range want {
		if messages[i].Content != w {
			t.Errorf("Position %d: got %q want %q", i, messages[i].Content, w)
		}
	}
}

func TestMarkMessagesReadIdempotent(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	chatID, alice, bob := seedChat(t)
	now := time.Now().UTC()

	seedMessage(t, chatID, alice, "hello", now)
	seedMessage(t, chatID, alice, "anyone there?", now.Add(time.Second))
	mine := seedMessage(t, chatID, bob, "yes", now.Add(2*time.Second))

	ids, err := testStore.MarkMessagesRead(chatID, bob, now.Add(3*time.Second))
	if err != nil {
		t.Fatalf("MarkMessagesRead failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 messages marked, got %d", len(ids))
	}

	messages, _ := testStore.ListMessages(chatID)
	var firstReadAt time.Time
	for _, m := range messages {
		if m.ID == mine.ID {
			if m.IsRead {
				t.Error("Expected reader's own message to stay unread")
			}
			continue
		}
		if !m.IsRead || m.ReadAt == nil {
			t.Errorf("Expected message %d to be read", m.ID)
			continue
		}
		firstReadAt = *m.ReadAt
	}

	// Second invocation matches nothing and leaves read_at unchanged.
	ids, err = testStore.MarkMessagesRead(chatID, bob, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Second MarkMessagesRead failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no messages marked on second call, got %d", len(ids))
	}

	messages, _ = testStore.ListMessages(chatID)
	for _, m := range messages {
		if m.ID != mine.ID && m.ReadAt != nil && !m.ReadAt.Equal(firstReadAt) {
			t.Errorf("Expected read_at to be unchanged, got %v want %v", m.ReadAt, firstReadAt)
		}
	}
}

func TestSoftDeleteMessage(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	chatID, alice, _ := seedChat(t)
	m := seedMessage(t, chatID, alice, "ciphertext-blob", time.Now().UTC())

	if err := testStore.SoftDeleteMessage(m.ID, models.Tombstone, time.Now().UTC()); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	got, err := testStore.GetMessage(m.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if !got.IsDeleted || got.DeletedAt == nil {
		t.Error("Expected message to be marked deleted")
	}
	if got.Content != models.Tombstone {
		t.Errorf("Expected tombstone content, got %q", got.Content)
	}

	// The row persists for ordering/audit.
	messages, _ := testStore.ListMessages(chatID)
	if len(messages) != 1 {
		t.Errorf("Expected soft-deleted row to persist, got %d rows", len(messages))
	}

	if err := testStore.SoftDeleteMessage(9999, models.Tombstone, time.Now().UTC()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing message, got %v", err)
	}
}

func TestUpdateMessageContent(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	chatID, alice, _ := seedChat(t)
	m := seedMessage(t, chatID, alice, "old-blob", time.Now().UTC())

	editedAt := time.Now().UTC().Add(time.Minute)
	if err := testStore.UpdateMessageContent(m.ID, "new-blob", editedAt); err != nil {
		t.Fatalf("UpdateMessageContent failed: %v", err)
	}

	got, _ := testStore.GetMessage(m.ID)
	if got.Content != "new-blob" {
		t.Errorf("Expected updated content, got %q", got.Content)
	}
	if got.EditedAt == nil {
		t.Error("Expected edited_at to be set")
	}
}

func TestClearMessages(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	chatID, alice, bob := seedChat(t)
	now := time.Now().UTC()
	seedMessage(t, chatID, alice, "one", now)
	seedMessage(t, chatID, bob, "two", now.Add(time.Second))

	n, err := testStore.ClearMessages(chatID)
	if err != nil {
		t.Fatalf("ClearMessages failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows cleared, got %d", n)
	}

	messages, _ := testStore.ListMessages(chatID)
	if len(messages) != 0 {
		t.Errorf("Expected no messages after clear, got %d", len(messages))
	}
}

func TestCountUnread(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	chatID, alice, bob := seedChat(t)
	now := time.Now().UTC()
	seedMessage(t, chatID, alice, "one", now)
	seedMessage(t, chatID, alice, "two", now.Add(time.Second))
	deleted := seedMessage(t, chatID, alice, "three", now.Add(2*time.Second))
	testStore.SoftDeleteMessage(deleted.ID, models.Tombstone, now.Add(3*time.Second))

	count, err := testStore.CountUnread(bob)
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 unread (deleted rows excluded), got %d", count)
	}

	// The sender has nothing unread.
	count, _ = testStore.CountUnread(alice)
	if count != 0 {
		t.Errorf("Expected 0 unread for sender, got %d", count)
	}
}

func TestReports(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	chatID, alice, bob := seedChat(t)
	m := seedMessage(t, chatID, alice, "spam", time.Now().UTC())

	has, _ := testStore.HasReport(m.ID, bob)
	if has {
		t.Error("Expected no report initially")
	}

	report := &models.MessageReport{MessageID: m.ID, ReporterID: bob, Reason: "spam"}
	if err := testStore.CreateReport(report); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}
	if err := testStore.MarkReported(m.ID); err != nil {
		t.Fatalf("MarkReported failed: %v", err)
	}

	has, _ = testStore.HasReport(m.ID, bob)
	if !has {
		t.Error("Expected report to exist")
	}

	got, _ := testStore.GetMessage(m.ID)
	if !got.IsReported {
		t.Error("Expected message to be flagged as reported")
	}

	// The unique pair constraint rejects duplicate reports.
	if err := testStore.CreateReport(&models.MessageReport{MessageID: m.ID, ReporterID: bob, Reason: "again"}); err == nil {
		t.Error("Expected duplicate report to fail")
	}
}
