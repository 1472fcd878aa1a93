package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/scraplink/chatcore/internal/models"
	"github.com/scraplink/chatcore/internal/store"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_a INTEGER NOT NULL REFERENCES users(id),
		user_b INTEGER NOT NULL REFERENCES users(id),
		last_message_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (user_a, user_b)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL REFERENCES chats(id),
		sender_id INTEGER NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'TEXT',
		attachment_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at DATETIME,
		is_reported BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		deleted_at DATETIME,
		edited_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, created_at, id);

	CREATE TABLE IF NOT EXISTS message_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER NOT NULL REFERENCES messages(id),
		reporter_id INTEGER NOT NULL REFERENCES users(id),
		reason TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (message_id, reporter_id)
	);

	CREATE TABLE IF NOT EXISTS blocks (
		blocker_id INTEGER NOT NULL REFERENCES users(id),
		blocked_id INTEGER NOT NULL REFERENCES users(id),
		created_at DATETIME NOT NULL,
		PRIMARY KEY (blocker_id, blocked_id)
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

// normalizePair orders an unordered participant pair so each pair maps to
// exactly one chats row.
func normalizePair(userA, userB int) (int, int) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}

func (s *SQLStore) CreateUser(user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := s.rebind("INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	return s.db.QueryRow(query, user.Username, user.Email, user.Password, user.CreatedAt).Scan(&user.ID)
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	query := s.rebind("SELECT id, username, email, password, created_at FROM users WHERE id = ?")
	return s.scanUser(s.db.QueryRow(query, id))
}

func (s *SQLStore) GetUserByUsername(username string) (*models.User, error) {
	query := s.rebind("SELECT id, username, email, password, created_at FROM users WHERE username = ?")
	return s.scanUser(s.db.QueryRow(query, username))
}

func (s *SQLStore) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) EnsureChat(userA, userB int) (*models.Chat, error) {
	a, b := normalizePair(userA, userB)

	chat, err := s.GetChatByParticipants(a, b)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	query := s.rebind("INSERT INTO chats (user_a, user_b, last_message_at, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	chat = &models.Chat{UserA: a, UserB: b, LastMessageAt: now, CreatedAt: now}
	if err := s.db.QueryRow(query, a, b, now, now).Scan(&chat.ID); err != nil {
		// A concurrent send may have created the row first; the unique
		// pair constraint makes the re-read authoritative.
		if existing, lookupErr := s.GetChatByParticipants(a, b); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return chat, nil
}

func (s *SQLStore) GetChat(id int) (*models.Chat, error) {
	query := s.rebind("SELECT id, user_a, user_b, last_message_at, created_at FROM chats WHERE id = ?")
	return s.scanChat(s.db.QueryRow(query, id))
}

func (s *SQLStore) GetChatByParticipants(userA, userB int) (*models.Chat, error) {
	a, b := normalizePair(userA, userB)
	query := s.rebind("SELECT id, user_a, user_b, last_message_at, created_at FROM chats WHERE user_a = ? AND user_b = ?")
	return s.scanChat(s.db.QueryRow(query, a, b))
}

func (s *SQLStore) scanChat(row *sql.Row) (*models.Chat, error) {
	var chat models.Chat
	err := row.Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.LastMessageAt, &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *SQLStore) ListUserChats(userID int) ([]models.Chat, error) {
	query := s.rebind(`
		SELECT id, user_a, user_b, last_message_at, created_at
		FROM chats
		WHERE user_a = ? OR user_b = ?
		ORDER BY last_message_at DESC
	`)
	rows, err := s.db.Query(query, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.LastMessageAt, &chat.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (s *SQLStore) TouchLastMessage(chatID int, at time.Time) error {
	query := s.rebind("UPDATE chats SET last_message_at = ? WHERE id = ?")
	_, err := s.db.Exec(query, at.UTC(), chatID)
	return err
}

func (s *SQLStore) CreateMessage(m *models.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := s.rebind(`
		INSERT INTO messages (chat_id, sender_id, content, kind, attachment_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id
	`)
	return s.db.QueryRow(query, m.ChatID, m.SenderID, m.Content, string(m.Kind), m.AttachmentURL, m.CreatedAt).Scan(&m.ID)
}

const messageColumns = "id, chat_id, sender_id, content, kind, attachment_url, created_at, is_read, read_at, is_reported, is_deleted, deleted_at, edited_at"

func (s *SQLStore) GetMessage(id int) (*models.Message, error) {
	query := s.rebind("SELECT " + messageColumns + " FROM messages WHERE id = ?")
	row := s.db.QueryRow(query, id)

	m, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns a chat's messages in insertion order: creation time
// ascending, id as the tiebreak.
func (s *SQLStore) ListMessages(chatID int) ([]models.Message, error) {
	query := s.rebind("SELECT " + messageColumns + " FROM messages WHERE chat_id = ? ORDER BY created_at ASC, id ASC")
	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func scanMessage(scan func(dest ...any) error) (*models.Message, error) {
	var (
		m         models.Message
		kind      string
		readAt    sql.NullTime
		deletedAt sql.NullTime
		editedAt  sql.NullTime
	)
	err := scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &kind, &m.AttachmentURL,
		&m.CreatedAt, &m.IsRead, &readAt, &m.IsReported, &m.IsDeleted, &deletedAt, &editedAt)
	if err != nil {
		return nil, err
	}
	m.Kind = models.MessageKind(kind)
	if readAt.Valid {
		m.ReadAt = &readAt.Time
	}
	if deletedAt.Valid {
		m.DeletedAt = &deletedAt.Time
	}
	if editedAt.Valid {
		m.EditedAt = &editedAt.Time
	}
	return &m, nil
}

// MarkMessagesRead flips unread messages not authored by the reader and
// returns the affected ids. Re-invoking is a no-op: the is_read guard means
// a second call matches nothing and existing read_at values are untouched.
func (s *SQLStore) MarkMessagesRead(chatID, readerID int, at time.Time) ([]int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := s.rebind("SELECT id FROM messages WHERE chat_id = ? AND sender_id <> ? AND is_read = FALSE ORDER BY id")
	rows, err := tx.Query(query, chatID, readerID)
	if err != nil {
		return nil, err
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	query = s.rebind("UPDATE messages SET is_read = TRUE, read_at = ? WHERE chat_id = ? AND sender_id <> ? AND is_read = FALSE")
	if _, err := tx.Exec(query, at.UTC(), chatID, readerID); err != nil {
		return nil, err
	}
	return ids, tx.Commit()
}

func (s *SQLStore) UpdateMessageContent(id int, content string, editedAt time.Time) error {
	query := s.rebind("UPDATE messages SET content = ?, edited_at = ? WHERE id = ?")
	return s.execExpectingRow(query, content, editedAt.UTC(), id)
}

func (s *SQLStore) SoftDeleteMessage(id int, tombstone string, at time.Time) error {
	query := s.rebind("UPDATE messages SET is_deleted = TRUE, deleted_at = ?, content = ? WHERE id = ?")
	return s.execExpectingRow(query, at.UTC(), tombstone, id)
}

func (s *SQLStore) MarkReported(messageID int) error {
	query := s.rebind("UPDATE messages SET is_reported = TRUE WHERE id = ?")
	return s.execExpectingRow(query, messageID)
}

func (s *SQLStore) execExpectingRow(query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) ClearMessages(chatID int) (int64, error) {
	query := s.rebind("DELETE FROM messages WHERE chat_id = ?")
	result, err := s.db.Exec(query, chatID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLStore) CountUnread(userID int) (int, error) {
	query := s.rebind(`
		SELECT COUNT(*)
		FROM messages m
		JOIN chats c ON m.chat_id = c.id
		WHERE (c.user_a = ? OR c.user_b = ?)
		  AND m.sender_id <> ?
		  AND m.is_read = FALSE
		  AND m.is_deleted = FALSE
	`)
	var count int
	err := s.db.QueryRow(query, userID, userID, userID).Scan(&count)
	return count, err
}

func (s *SQLStore) CreateReport(r *models.MessageReport) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	query := s.rebind("INSERT INTO message_reports (message_id, reporter_id, reason, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	return s.db.QueryRow(query, r.MessageID, r.ReporterID, r.Reason, r.CreatedAt).Scan(&r.ID)
}

func (s *SQLStore) HasReport(messageID, reporterID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM message_reports WHERE message_id = ? AND reporter_id = ?)")
	err := s.db.QueryRow(query, messageID, reporterID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) BlockUser(blockerID, blockedID int) error {
	query := "INSERT OR IGNORE INTO blocks (blocker_id, blocked_id, created_at) VALUES (?, ?, ?)"
	if s.driverName == "postgres" {
		query = "INSERT INTO blocks (blocker_id, blocked_id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING"
	}
	_, err := s.db.Exec(s.rebind(query), blockerID, blockedID, time.Now().UTC())
	return err
}

func (s *SQLStore) UnblockUser(blockerID, blockedID int) error {
	query := s.rebind("DELETE FROM blocks WHERE blocker_id = ? AND blocked_id = ?")
	_, err := s.db.Exec(query, blockerID, blockedID)
	return err
}

// IsBlocked reports whether either user has blocked the other.
func (s *SQLStore) IsBlocked(userA, userB int) (bool, error) {
	var exists bool
	query := s.rebind(`
		SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = ? AND blocked_id = ?)
			   OR (blocker_id = ? AND blocked_id = ?)
		)
	`)
	err := s.db.QueryRow(query, userA, userB, userB, userA).Scan(&exists)
	return exists, err
}
