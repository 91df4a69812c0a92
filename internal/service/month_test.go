package service

import (
	"testing"
	"time"
)

func TestMonthBucket_FixedConvention(t *testing.T) {
	ts := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	if got := MonthBucket(ts); got != "tháng 3 năm 2026" {
		t.Errorf("MonthBucket() = %q, want %q", got, "tháng 3 năm 2026")
	}
}

func TestMonthBucket_SameMonthSameBucket(t *testing.T) {
	a := time.Date(2026, 5, 1, 0, 0, 0, 0, time.FixedZone("+07", 7*3600))
	b := time.Date(2026, 5, 31, 23, 59, 59, 0, time.FixedZone("+07", 7*3600))
	if MonthBucket(a) != MonthBucket(b) {
		t.Errorf("MonthBucket() buckets differ within one month: %q vs %q", MonthBucket(a), MonthBucket(b))
	}
	c := time.Date(2026, 6, 1, 0, 0, 0, 0, time.FixedZone("+07", 7*3600))
	if MonthBucket(b) == MonthBucket(c) {
		t.Error("MonthBucket() did not separate adjacent months")
	}
}

// 分组按固定时区计算：UTC 月末深夜在 +07 已经是下个月。
func TestMonthBucket_ZoneBoundary(t *testing.T) {
	ts := time.Date(2026, 1, 31, 20, 0, 0, 0, time.UTC)
	if got := MonthBucket(ts); got != "tháng 2 năm 2026" {
		t.Errorf("MonthBucket() = %q, want %q", got, "tháng 2 năm 2026")
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "hello", "hello"},
		{"exact", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{"long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa..."},
		{"multibyte", "xin chào các bạn", "xin chào các bạn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := excerpt(tt.in, 50); got != tt.want {
				t.Errorf("excerpt() = %q, want %q", got, tt.want)
			}
		})
	}
}
