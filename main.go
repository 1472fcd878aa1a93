package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scraplink/chatcore/internal/chat"
	"github.com/scraplink/chatcore/internal/config"
	"github.com/scraplink/chatcore/internal/crypto"
	"github.com/scraplink/chatcore/internal/csrf"
	"github.com/scraplink/chatcore/internal/handlers"
	"github.com/scraplink/chatcore/internal/middleware"
	"github.com/scraplink/chatcore/internal/presence"
	"github.com/scraplink/chatcore/internal/realtime"
	"github.com/scraplink/chatcore/internal/store/sqlstore"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := config.Load()

	st, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	cipher := crypto.New(cfg.EncryptionKey)
	guard := csrf.New(cfg.CSRFSecret)

	// Presence falls back to the in-process tracker when Redis is not
	// configured; single-node deployments need nothing more.
	var tracker presence.Tracker = presence.NewMemory()
	if cfg.RedisAddr != "" {
		tracker = presence.NewRedis(cfg.RedisAddr)
	}
	presenceSvc := presence.NewService(tracker, cfg.OnlineWindow)

	hub := realtime.NewHub()
	go hub.Run()

	chatSvc := chat.NewService(st, cipher, hub)

	authHandler := &handlers.AuthHandler{Store: st, Guard: guard, SessionSecret: cfg.SessionSecret}
	chatHandler := &handlers.ChatHandler{Service: chatSvc, Store: st, Presence: presenceSvc}

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	// Public endpoints
	r.HandleFunc("/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Authenticated endpoints; mutating ones also pass the CSRF check.
	api := r.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.SessionSecret, presenceSvc))
	api.Use(guard.Protect)

	api.HandleFunc("/csrf", authHandler.CSRFToken).Methods("GET")

	// Literal chat routes must register before /chats/{otherUserId}.
	api.HandleFunc("/chats", chatHandler.Inbox).Methods("GET")
	api.HandleFunc("/chats/unread", chatHandler.Unread).Methods("GET")
	api.HandleFunc("/chats/report", chatHandler.Report).Methods("POST")
	api.HandleFunc("/chats/typing", chatHandler.Typing).Methods("POST")
	api.HandleFunc("/chats/block/{otherUserId}", chatHandler.Block).Methods("POST")
	api.HandleFunc("/chats/block/{otherUserId}", chatHandler.Unblock).Methods("DELETE")
	api.HandleFunc("/chats/clear/{chatId}", chatHandler.ClearChat).Methods("DELETE")
	api.HandleFunc("/chats/{otherUserId}", chatHandler.GetConversation).Methods("GET")
	api.HandleFunc("/chats/{otherUserId}", chatHandler.SendMessage).Methods("POST")
	api.HandleFunc("/chats/{otherUserId}/read", chatHandler.MarkRead).Methods("POST")
	api.HandleFunc("/messages/{id}", chatHandler.EditMessage).Methods("PATCH")
	api.HandleFunc("/messages/{id}", chatHandler.DeleteMessage).Methods("DELETE")
	api.HandleFunc("/presence/{userId}", chatHandler.GetPresence).Methods("GET")

	// Realtime endpoints: SSE for browsers, WebSocket for native clients.
	api.HandleFunc("/realtime", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeSSE(w, r, middleware.UserIDFrom(r))
	}).Methods("GET")
	api.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, middleware.UserIDFrom(r))
	}).Methods("GET")

	log.Println("Starting server on", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, r))
}
