package bot

import (
	"context"
	"strconv"
	"sync"
)

// Settings holds runtime settings with thread-safe access.
type Settings struct {
	mu         sync.RWMutex
	chatID     int64
	digestTime string
}

// NewSettings initializes settings.
func NewSettings(chatID int64, digestTime string) *Settings {
	return &Settings{chatID: chatID, digestTime: digestTime}
}

// LoadSettings overlays persisted values on the configured defaults.
func LoadSettings(ctx context.Context, store Storage, chatID int64, digestTime string) (*Settings, error) {
	s := NewSettings(chatID, digestTime)
	if v, ok, err := store.GetSetting(ctx, SettingChatID); err != nil {
		return nil, err
	} else if ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.chatID = id
		}
	}
	if v, ok, err := store.GetSetting(ctx, SettingDigestTime); err != nil {
		return nil, err
	} else if ok && validTime(v) {
		s.digestTime = v
	}
	return s, nil
}

func (s *Settings) ChatID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatID
}

func (s *Settings) SetChatID(id int64) {
	s.mu.Lock()
	s.chatID = id
	s.mu.Unlock()
}

func (s *Settings) DigestTime() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.digestTime
}

func (s *Settings) SetDigestTime(value string) {
	s.mu.Lock()
	s.digestTime = value
	s.mu.Unlock()
}
