package presence

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultOnlineWindow is the span after a user's last activity during which
// they count as online. Presence is approximate; last-writer-wins per key.
const DefaultOnlineWindow = 60 * time.Second

// Tracker stores last-seen timestamps per user. State is ephemeral and may
// be lost on restart.
type Tracker interface {
	Touch(ctx context.Context, userID int) error
	// LastSeen returns the zero time when the user has never been seen.
	LastSeen(ctx context.Context, userID int) (time.Time, error)
}

// Memory is the default in-process tracker.
type Memory struct {
	mu   sync.RWMutex
	seen map[int]time.Time
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[int]time.Time), now: time.Now}
}

func (m *Memory) Touch(ctx context.Context, userID int) error {
	m.mu.Lock()
	m.seen[userID] = m.now()
	m.mu.Unlock()
	return nil
}

func (m *Memory) LastSeen(ctx context.Context, userID int) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seen[userID], nil
}

// Service derives online state and human-relative text from a Tracker.
type Service struct {
	tracker Tracker
	window  time.Duration
	now     func() time.Time
}

func NewService(tracker Tracker, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultOnlineWindow
	}
	return &Service{tracker: tracker, window: window, now: time.Now}
}

func (s *Service) Touch(ctx context.Context, userID int) error {
	return s.tracker.Touch(ctx, userID)
}

func (s *Service) IsOnline(ctx context.Context, userID int) bool {
	last, err := s.tracker.LastSeen(ctx, userID)
	if err != nil || last.IsZero() {
		return false
	}
	return s.now().Sub(last) < s.window
}

// LastSeenText renders a relative last-seen string, falling back to a date
// beyond seven days.
func (s *Service) LastSeenText(ctx context.Context, userID int) string {
	last, err := s.tracker.LastSeen(ctx, userID)
	if err != nil || last.IsZero() {
		return "offline"
	}

	diff := s.now().Sub(last)
	switch {
	case diff < s.window:
		return "online now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return last.Format("Jan 2, 2006")
	}
}
