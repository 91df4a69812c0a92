package service

import (
	"testing"

	"github.com/tyhnhzi/webchat/internal/models"
)

func newNotificationService(t *testing.T) (*NotificationService, *fakeHub) {
	t.Helper()
	primary, hub := newTestEnv(t)
	return NewNotificationService(primary, nil, hub), hub
}

func TestNotification_SendPersistsAndBroadcasts(t *testing.T) {
	svc, hub := newNotificationService(t)

	n, err := svc.Send("alice", "bạn có tin nhắn mới", "")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if n.ID == 0 {
		t.Error("Send() did not assign an id")
	}
	if n.Type != "info" {
		t.Errorf("Send() default type = %q, want info", n.Type)
	}

	evts := hub.byName("notification-received")
	if len(evts) != 1 {
		t.Fatalf("notification-received events = %d, want 1", len(evts))
	}
	if got := evts[0].data.(models.Notification); got.ID != n.ID {
		t.Errorf("broadcast notification id = %d, want %d", got.ID, n.ID)
	}
}

func TestNotification_SendRequiresFields(t *testing.T) {
	svc, _ := newNotificationService(t)
	if _, err := svc.Send("", "msg", "info"); err != ErrEmptyContent {
		t.Errorf("Send() without username error = %v, want ErrEmptyContent", err)
	}
	if _, err := svc.Send("alice", "", "info"); err != ErrEmptyContent {
		t.Errorf("Send() without message error = %v, want ErrEmptyContent", err)
	}
}

func TestNotification_MarkReadIdempotent(t *testing.T) {
	svc, _ := newNotificationService(t)

	n, err := svc.Send("alice", "hello", "info")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.MarkRead(n.ID); err != nil {
			t.Fatalf("MarkRead() attempt %d error = %v", i+1, err)
		}
	}
	ns, err := svc.List("alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ns) != 1 || !ns[0].IsRead {
		t.Errorf("List() = %+v, want one read notification", ns)
	}
}

func TestNotification_ListNewestFirst(t *testing.T) {
	svc, _ := newNotificationService(t)

	for _, msg := range []string{"one", "two", "three"} {
		if _, err := svc.Send("alice", msg, "info"); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if _, err := svc.Send("bob", "other", "info"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	ns, err := svc.List("alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ns) != 3 {
		t.Fatalf("List() returned %d notifications, want 3", len(ns))
	}
	for _, n := range ns {
		if n.Username != "alice" {
			t.Errorf("List() leaked notification for %q", n.Username)
		}
	}
}
