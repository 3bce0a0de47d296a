package moderation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amcommunity/warden/internal/auditlog"
	"github.com/amcommunity/warden/internal/history"
)

func newTestEnforcer(platform *MockPlatform, hist *history.Store, roleID string) (*Enforcer, *auditlog.Log) {
	audit := auditlog.NewLog(auditlog.NewInMemoryStore(), nil)
	return NewEnforcer(platform, hist, audit, nil, nil, roleID, time.Hour), audit
}

func TestAssignQuarantineRoleUnconfigured(t *testing.T) {
	p := NewMockPlatform()
	e, _ := newTestEnforcer(p, history.NewStore(), "")

	if e.AssignQuarantineRole(context.Background(), "g1", "u1", "test") {
		t.Fatalf("unconfigured role must fail closed")
	}
	if p.RoleAssignCount() != 0 {
		t.Fatalf("no role should be assigned, got %v", p.AddedRoles)
	}
}

func TestAssignQuarantineRoleNotFound(t *testing.T) {
	p := NewMockPlatform()
	p.GetRoleFunc = func(guildID, roleID string) (*Role, error) {
		return nil, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	e, _ := newTestEnforcer(p, history.NewStore(), "r1")

	if e.AssignQuarantineRole(context.Background(), "g1", "u1", "test") {
		t.Fatalf("missing role must fail closed")
	}
}

func TestAssignQuarantineRoleForbidden(t *testing.T) {
	p := NewMockPlatform()
	p.AddRoleFunc = func(guildID, userID, roleID, reason string) error {
		return fmt.Errorf("add role: %w", ErrForbidden)
	}
	e, _ := newTestEnforcer(p, history.NewStore(), "r1")

	if e.AssignQuarantineRole(context.Background(), "g1", "u1", "test") {
		t.Fatalf("forbidden assignment must report failure")
	}
}

func TestAssignQuarantineRoleSuccess(t *testing.T) {
	p := NewMockPlatform()
	e, _ := newTestEnforcer(p, history.NewStore(), "r1")

	if !e.AssignQuarantineRole(context.Background(), "g1", "u1", "test") {
		t.Fatalf("assignment should succeed")
	}
	if p.RoleAssignCount() != 1 || p.AddedRoles[0] != "u1:r1" {
		t.Fatalf("AddedRoles = %v, want [u1:r1]", p.AddedRoles)
	}
}

func TestPurgeRecentMessagesSumsAcrossChannels(t *testing.T) {
	p := NewMockPlatform()
	p.TextChannelsFunc = func(string) ([]Channel, error) {
		return []Channel{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}, nil
	}
	counts := map[string]int{"c1": 3, "c2": 0, "c3": 4}
	p.PurgeChannelFunc = func(channelID string, match func(string) bool, after time.Time) (int, error) {
		if !match("target") || match("someone-else") {
			t.Fatalf("author predicate must match only the target user")
		}
		return counts[channelID], nil
	}
	e, _ := newTestEnforcer(p, history.NewStore(), "r1")

	got := e.PurgeRecentMessages(context.Background(), "g1", "target")
	if got != 7 {
		t.Fatalf("deleted = %d, want 7", got)
	}
	if len(p.PurgedChannels) != 3 {
		t.Fatalf("purged channels = %v, want all three", p.PurgedChannels)
	}
}

func TestPurgeSkipsChannelsWithoutPermission(t *testing.T) {
	p := NewMockPlatform()
	p.TextChannelsFunc = func(string) ([]Channel, error) {
		return []Channel{{ID: "locked"}, {ID: "open"}}, nil
	}
	p.PermissionsForFunc = func(channelID string) (Permissions, error) {
		if channelID == "locked" {
			return Permissions{ReadMessages: true, ManageMessages: false}, nil
		}
		return Permissions{ReadMessages: true, ManageMessages: true}, nil
	}
	p.PurgeChannelFunc = func(channelID string, match func(string) bool, after time.Time) (int, error) {
		return 2, nil
	}
	e, _ := newTestEnforcer(p, history.NewStore(), "r1")

	got := e.PurgeRecentMessages(context.Background(), "g1", "u1")
	if got != 2 {
		t.Fatalf("deleted = %d, want 2 (locked channel skipped)", got)
	}
	if len(p.PurgedChannels) != 1 || p.PurgedChannels[0] != "open" {
		t.Fatalf("purged channels = %v, want [open]", p.PurgedChannels)
	}
}

func TestPurgeChannelFailuresAreIndependent(t *testing.T) {
	p := NewMockPlatform()
	p.TextChannelsFunc = func(string) ([]Channel, error) {
		return []Channel{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}, nil
	}
	p.PurgeChannelFunc = func(channelID string, match func(string) bool, after time.Time) (int, error) {
		switch channelID {
		case "c1":
			return 0, fmt.Errorf("purge: %w", ErrForbidden)
		case "c2":
			return 0, fmt.Errorf("purge: %w", ErrTransient)
		default:
			return 5, nil
		}
	}
	e, _ := newTestEnforcer(p, history.NewStore(), "r1")

	got := e.PurgeRecentMessages(context.Background(), "g1", "u1")
	if got != 5 {
		t.Fatalf("deleted = %d, want 5 (failed channels contribute zero)", got)
	}
	if len(p.PurgedChannels) != 3 {
		t.Fatalf("failures must not abort remaining channels, purged = %v", p.PurgedChannels)
	}
}

func TestHandleQuarantineDeletesTriggerMessageFirst(t *testing.T) {
	p := NewMockPlatform()
	p.AddRoleFunc = func(string, string, string, string) error {
		return fmt.Errorf("add role: %w", ErrForbidden)
	}
	e, _ := newTestEnforcer(p, history.NewStore(), "r1")

	msg := Message{ID: "m1", GuildID: "g1", ChannelID: "c1", Author: Member{UserID: "u1"}}
	e.HandleQuarantine(context.Background(), msg, "honeypot", auditlog.SourceHoneypot)

	// The trigger message is deleted even though role assignment failed.
	if len(p.DeletedMessages) != 1 || p.DeletedMessages[0] != "c1:m1" {
		t.Fatalf("DeletedMessages = %v, want the trigger message", p.DeletedMessages)
	}
}

func TestHandleQuarantineIgnoresAlreadyGoneTrigger(t *testing.T) {
	p := NewMockPlatform()
	p.DeleteMessageFunc = func(string, string) error {
		return fmt.Errorf("delete: %w", ErrNotFound)
	}
	hist := history.NewStore()
	e, _ := newTestEnforcer(p, hist, "r1")

	msg := Message{ID: "m1", GuildID: "g1", ChannelID: "c1", Author: Member{UserID: "u1"}}
	e.HandleQuarantine(context.Background(), msg, "honeypot", auditlog.SourceHoneypot)

	if p.RoleAssignCount() != 1 {
		t.Fatalf("already-gone trigger must not stop the quarantine")
	}
}

func TestQuarantineRoleFailureLeavesHistoryUntouched(t *testing.T) {
	p := NewMockPlatform()
	p.AddRoleFunc = func(string, string, string, string) error {
		return fmt.Errorf("add role: %w", ErrForbidden)
	}
	hist := history.NewStore()
	hist.Add("u1", "some message content here", "c1", time.Now().UTC())
	e, audit := newTestEnforcer(p, hist, "r1")

	assigned, deleted := e.Quarantine(context.Background(), "g1", "u1", "spam", auditlog.SourceSpam)
	if assigned || deleted != 0 {
		t.Fatalf("Quarantine = (%v, %d), want (false, 0)", assigned, deleted)
	}
	if len(p.PurgedChannels) != 0 {
		t.Fatalf("no purge may run after role failure, purged = %v", p.PurgedChannels)
	}
	if got := hist.HistoryFor("u1"); len(got) != 1 {
		t.Fatalf("history = %v, want untouched after role failure", got)
	}

	entries, err := audit.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 || entries[0].RoleAssigned {
		t.Fatalf("audit = %v, want a failed entry", entries)
	}
}

func TestQuarantineSuccessClearsHistoryEvenWithZeroPurged(t *testing.T) {
	p := NewMockPlatform()
	hist := history.NewStore()
	hist.Add("u1", "some message content here", "c1", time.Now().UTC())
	e, audit := newTestEnforcer(p, hist, "r1")

	assigned, deleted := e.Quarantine(context.Background(), "g1", "u1", "spam", auditlog.SourceSpam)
	if !assigned || deleted != 0 {
		t.Fatalf("Quarantine = (%v, %d), want (true, 0)", assigned, deleted)
	}
	if got := hist.HistoryFor("u1"); got != nil {
		t.Fatalf("history = %v, want cleared after successful quarantine", got)
	}

	entries, err := audit.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 || !entries[0].RoleAssigned || entries[0].Source != auditlog.SourceSpam {
		t.Fatalf("audit = %+v, want a successful spam entry", entries)
	}
}
