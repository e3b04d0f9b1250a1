package urlcache

import (
	"testing"
	"time"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := New(time.Minute)
	c.Put("alice", "http://example/a.m3u8")
	got, ok := c.Get("alice")
	if !ok || got != "http://example/a.m3u8" {
		t.Fatalf("Get = (%q, %v), want cached URL", got, ok)
	}
}

func TestGetMissesUnknown(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.Get("nobody"); ok {
		t.Fatalf("Get should miss for unknown key")
	}
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New(time.Minute)
	c.Put("alice", "http://example/a.m3u8")
	// Age the entry past the TTL instead of sleeping.
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok := c.Get("alice"); ok {
		t.Fatalf("Get should treat an entry older than the TTL as absent")
	}
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c := New(time.Minute)
	c.Put("alice", "u")
	c.Invalidate("alice")
	if _, ok := c.Get("alice"); ok {
		t.Fatalf("entry survived Invalidate")
	}
	// Invalidating an absent key is fine.
	c.Invalidate("bob")
}

func TestPutReplacesPrevious(t *testing.T) {
	c := New(time.Minute)
	c.Put("alice", "old")
	c.Put("alice", "new")
	if got, _ := c.Get("alice"); got != "new" {
		t.Fatalf("Get = %q, want %q", got, "new")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestSweepDropsExpiredOnly(t *testing.T) {
	c := New(time.Minute)
	c.Put("old", "u1")
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	c.Put("fresh", "u2")
	c.Sweep()
	if c.Len() != 1 {
		t.Fatalf("Len after Sweep = %d, want 1", c.Len())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatalf("fresh entry removed by Sweep")
	}
}
