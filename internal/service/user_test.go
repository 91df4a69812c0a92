package service

import (
	"testing"

	"github.com/tyhnhzi/webchat/internal/relay"
)

func newUserService(t *testing.T) (*UserService, *fakeHub) {
	t.Helper()
	primary, hub := newTestEnv(t)
	return NewUserService(primary, nil, hub, relay.Nop{}), hub
}

func TestJoin_UpsertIdempotent(t *testing.T) {
	svc, _ := newUserService(t)

	if err := svc.Join("alice", "1.2.3.4"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	// 重复 join 不新建用户，只刷新 ip。
	if err := svc.Join("alice", "5.6.7.8"); err != nil {
		t.Fatalf("second Join() error = %v", err)
	}

	users, err := svc.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("ListUsers() = %d users, want 1", len(users))
	}
}

func TestJoin_RequiresUsername(t *testing.T) {
	svc, _ := newUserService(t)
	if err := svc.Join("", "1.2.3.4"); err != ErrNoIdentity {
		t.Errorf("Join() error = %v, want ErrNoIdentity", err)
	}
}

func TestProfile_NotFound(t *testing.T) {
	svc, _ := newUserService(t)
	if _, err := svc.Profile("ghost"); err != ErrUserNotFound {
		t.Errorf("Profile() error = %v, want ErrUserNotFound", err)
	}
}

func TestProfile_MessageCountExcludesRevoked(t *testing.T) {
	primary, hub := newTestEnv(t)
	userSvc := NewUserService(primary, nil, hub, relay.Nop{})
	msgSvc := NewMessageService(primary, nil, hub, relay.Nop{})

	if err := userSvc.Join("alice", "1.2.3.4"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	m1, err := msgSvc.Ingest(IngestInput{Username: "alice", Content: "one"})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if _, err := msgSvc.Ingest(IngestInput{Username: "alice", Content: "two"}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if err := msgSvc.Revoke(m1.ID, "alice"); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	p, err := userSvc.Profile("alice")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.MessageCount != 1 {
		t.Errorf("Profile() messageCount = %d, want 1", p.MessageCount)
	}
}

func TestUpdateProfile_Broadcasts(t *testing.T) {
	svc, hub := newUserService(t)

	if err := svc.Join("alice", "1.2.3.4"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := svc.UpdateProfile("alice", "a.png", "xin chào", "away"); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	evts := hub.byName("profile-updated")
	if len(evts) != 1 {
		t.Fatalf("profile-updated events = %d, want 1", len(evts))
	}
	data := evts[0].data.(map[string]interface{})
	if data["username"] != "alice" || data["status"] != "away" {
		t.Errorf("profile-updated data = %v", data)
	}

	p, err := svc.Profile("alice")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Status != "away" || p.Avatar != "a.png" {
		t.Errorf("Profile() after update = %+v", p)
	}
}
