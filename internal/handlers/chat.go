package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/scraplink/chatcore/internal/chat"
	"github.com/scraplink/chatcore/internal/middleware"
	"github.com/scraplink/chatcore/internal/models"
	"github.com/scraplink/chatcore/internal/presence"
	"github.com/scraplink/chatcore/internal/store"
)

type ChatHandler struct {
	Service  *chat.Service
	Store    store.Store
	Presence *presence.Service
}

type SendMessageRequest struct {
	Content       string             `json:"content"`
	Kind          models.MessageKind `json:"message_type"`
	AttachmentURL string             `json:"attachment_url" validate:"omitempty,url"`
}

type EditMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type ReportRequest struct {
	MessageID int    `json:"message_id" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=500"`
}

type TypingRequest struct {
	ChatID int `json:"chat_id" validate:"required"`
}

func pathInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(mux.Vars(r)[key])
	return n
}

// GetConversation returns the message history with the peer, oldest first.
// A conversation that was never started is an empty list, not a 404.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)
	otherID := pathInt(r, "otherUserId")

	other, err := h.Store.GetUserByID(otherID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	messages, err := h.Service.Conversation(userID, otherID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    userID,
		"other_user": other,
		"messages":   messages,
	})
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)
	otherID := pathInt(r, "otherUserId")

	var req SendMessageRequest
	if err := decodeValid(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.Service.SendMessage(userID, otherID, req.Content, req.Kind, req.AttachmentURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)
	otherID := pathInt(r, "otherUserId")

	ids, err := h.Service.MarkConversationRead(userID, otherID)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"read_message_ids": ids})
}

func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)
	messageID := pathInt(r, "id")

	var req EditMessageRequest
	if err := decodeValid(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.Service.EditMessage(messageID, userID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)
	messageID := pathInt(r, "id")

	if err := h.Service.DeleteMessage(messageID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) ClearChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)
	chatID := pathInt(r, "chatId")

	if err := h.Service.ClearChat(chatID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) Report(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)

	var req ReportRequest
	if err := decodeValid(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.ReportMessage(req.MessageID, userID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reported"})
}

func (h *ChatHandler) Typing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)

	var req TypingRequest
	if err := decodeValid(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Typing(req.ChatID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)

	chats, err := h.Service.ListChats(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) Unread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)

	count, err := h.Service.UnreadCount(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *ChatHandler) Block(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)
	otherID := pathInt(r, "otherUserId")

	if err := h.Service.BlockUser(userID, otherID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r)
	otherID := pathInt(r, "otherUserId")

	if err := h.Service.UnblockUser(userID, otherID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPresence reports online state for any user; intentionally coarse so it
// leaks nothing beyond what the chat UI already shows.
func (h *ChatHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	targetID := pathInt(r, "userId")

	if _, err := h.Store.GetUserByID(targetID); err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":        targetID,
		"is_online":      h.Presence.IsOnline(r.Context(), targetID),
		"last_seen_text": h.Presence.LastSeenText(r.Context(), targetID),
	})
}
