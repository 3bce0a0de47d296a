package moderation

import (
	"context"
	"sync"
	"time"
)

// MockPlatform is a scriptable in-memory Platform for tests. Unset function
// fields fall back to permissive defaults, and every mutating call is
// recorded.
type MockPlatform struct {
	mu sync.Mutex

	GetRoleFunc        func(guildID, roleID string) (*Role, error)
	AddRoleFunc        func(guildID, userID, roleID, reason string) error
	RemoveRoleFunc     func(guildID, userID, roleID string) error
	FetchMemberFunc    func(guildID, userID string) (*Member, error)
	DeleteMessageFunc  func(channelID, messageID string) error
	TextChannelsFunc   func(guildID string) ([]Channel, error)
	PermissionsForFunc func(channelID string) (Permissions, error)
	PurgeChannelFunc   func(channelID string, match func(string) bool, after time.Time) (int, error)

	AddedRoles      []string // userID:roleID
	DeletedMessages []string // channelID:messageID
	PurgedChannels  []string
}

func NewMockPlatform() *MockPlatform { return &MockPlatform{} }

func (m *MockPlatform) GetRole(_ context.Context, guildID, roleID string) (*Role, error) {
	if m.GetRoleFunc != nil {
		return m.GetRoleFunc(guildID, roleID)
	}
	return &Role{ID: roleID, Name: "quarantine"}, nil
}

func (m *MockPlatform) AddRole(_ context.Context, guildID, userID, roleID, reason string) error {
	if m.AddRoleFunc != nil {
		if err := m.AddRoleFunc(guildID, userID, roleID, reason); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.AddedRoles = append(m.AddedRoles, userID+":"+roleID)
	m.mu.Unlock()
	return nil
}

func (m *MockPlatform) RemoveRole(_ context.Context, guildID, userID, roleID string) error {
	if m.RemoveRoleFunc != nil {
		return m.RemoveRoleFunc(guildID, userID, roleID)
	}
	return nil
}

func (m *MockPlatform) FetchMember(_ context.Context, guildID, userID string) (*Member, error) {
	if m.FetchMemberFunc != nil {
		return m.FetchMemberFunc(guildID, userID)
	}
	return &Member{UserID: userID, GuildID: guildID}, nil
}

func (m *MockPlatform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	if m.DeleteMessageFunc != nil {
		if err := m.DeleteMessageFunc(channelID, messageID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.DeletedMessages = append(m.DeletedMessages, channelID+":"+messageID)
	m.mu.Unlock()
	return nil
}

func (m *MockPlatform) TextChannels(_ context.Context, guildID string) ([]Channel, error) {
	if m.TextChannelsFunc != nil {
		return m.TextChannelsFunc(guildID)
	}
	return nil, nil
}

func (m *MockPlatform) PermissionsFor(_ context.Context, channelID string) (Permissions, error) {
	if m.PermissionsForFunc != nil {
		return m.PermissionsForFunc(channelID)
	}
	return Permissions{ReadMessages: true, ManageMessages: true}, nil
}

func (m *MockPlatform) PurgeChannel(_ context.Context, channelID string, match func(string) bool, after time.Time) (int, error) {
	m.mu.Lock()
	m.PurgedChannels = append(m.PurgedChannels, channelID)
	m.mu.Unlock()
	if m.PurgeChannelFunc != nil {
		return m.PurgeChannelFunc(channelID, match, after)
	}
	return 0, nil
}

// RoleAssignCount reports how many role assignments were recorded.
func (m *MockPlatform) RoleAssignCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.AddedRoles)
}
