package tempfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tyhnhzi/webchat/internal/config"
	"github.com/tyhnhzi/webchat/internal/store"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	gdb, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	dir := t.TempDir()
	return NewStore(store.NewPrimary(gdb), nil, dir, config.TempFileTTL), dir
}

func writeBlob(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("blob"), 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	return path
}

func TestRegister_SetsExpiry(t *testing.T) {
	s, _ := newTestStore(t)

	now := time.Now()
	tf, err := s.Register("123-a.png", "a.png", "image/png", 4, "alice", now)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got := tf.ExpiresAt.Sub(now); got != config.TempFileTTL {
		t.Errorf("Register() ttl = %v, want %v", got, config.TempFileTTL)
	}
}

func TestSweep_RemovesExpired(t *testing.T) {
	s, dir := newTestStore(t)

	// 过期文件：登记时间拨回 8 天前。
	expiredPath := writeBlob(t, dir, "old.png")
	if _, err := s.Register("old.png", "old.png", "image/png", 4, "alice", time.Now().Add(-8*24*time.Hour)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	// 未过期文件。
	freshPath := writeBlob(t, dir, "fresh.png")
	if _, err := s.Register("fresh.png", "fresh.png", "image/png", 4, "alice", time.Now()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if removed := s.SweepOnce(time.Now()); removed != 1 {
		t.Fatalf("SweepOnce() removed = %d, want 1", removed)
	}

	if _, err := os.Stat(expiredPath); !os.IsNotExist(err) {
		t.Error("expired blob still on disk after sweep")
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Errorf("fresh blob missing after sweep: %v", err)
	}

	// 未过期的记录能活过任意多轮清扫。
	for i := 0; i < 3; i++ {
		if removed := s.SweepOnce(time.Now()); removed != 0 {
			t.Fatalf("SweepOnce() round %d removed = %d, want 0", i+2, removed)
		}
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Errorf("fresh blob missing after repeated sweeps: %v", err)
	}
}

// 磁盘文件已经不在时，登记记录仍被清掉，批次不中断。
func TestSweep_ToleratesMissingBlob(t *testing.T) {
	s, dir := newTestStore(t)

	if _, err := s.Register("gone.png", "gone.png", "image/png", 4, "alice", time.Now().Add(-8*24*time.Hour)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	otherPath := writeBlob(t, dir, "also-old.png")
	if _, err := s.Register("also-old.png", "also-old.png", "image/png", 4, "bob", time.Now().Add(-8*24*time.Hour)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if removed := s.SweepOnce(time.Now()); removed != 2 {
		t.Fatalf("SweepOnce() removed = %d, want 2", removed)
	}
	if _, err := os.Stat(otherPath); !os.IsNotExist(err) {
		t.Error("second expired blob survived the batch")
	}
	if removed := s.SweepOnce(time.Now()); removed != 0 {
		t.Errorf("records not deleted: second sweep removed %d", removed)
	}
}
