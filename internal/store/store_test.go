package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMatchCacheRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cache, err := OpenMatchCache(dir)
	if err != nil {
		t.Fatal(err)
	}

	key := Key("ev-1", "KXBTC-26JUN")
	match := ConfirmedMatch{
		PolySlug:     "bitcoin-above-100k-in-june",
		KalshiTicker: "KXBTC-26JUN",
		Name:         "Bitcoin above 100k in June",
		Category:     "crypto",
		Score:        0.91,
		ConfirmedAt:  time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := cache.Confirm(key, match); err != nil {
		t.Fatal(err)
	}
	if err := cache.Reject(Key("ev-2", "KXSENATE")); err != nil {
		t.Fatal(err)
	}

	// Reopen from disk and verify both decisions survived.
	reopened, err := OpenMatchCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reopened.Confirmed(key)
	if !ok {
		t.Fatal("confirmation lost across reopen")
	}
	if got != match {
		t.Errorf("confirmed = %+v, want %+v", got, match)
	}
	if !reopened.Rejected(Key("ev-2", "KXSENATE")) {
		t.Error("rejection lost across reopen")
	}
	if reopened.Rejected(key) {
		t.Error("confirmed key reported as rejected")
	}

	all := reopened.AllConfirmed()
	if len(all) != 1 || all[0].KalshiTicker != "KXBTC-26JUN" {
		t.Errorf("AllConfirmed = %+v", all)
	}
}

func TestRejectOverridesConfirm(t *testing.T) {
	t.Parallel()
	cache, err := OpenMatchCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := Key("a", "b")
	if err := cache.Confirm(key, ConfirmedMatch{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := cache.Reject(key); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Confirmed(key); ok {
		t.Error("rejected key still confirmed")
	}
	if !cache.Rejected(key) {
		t.Error("rejection not recorded")
	}
}

func TestOpenMatchCacheMissingFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cache, err := OpenMatchCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cache.AllConfirmed()) != 0 {
		t.Error("fresh cache not empty")
	}

	// Corrupt file surfaces as an error instead of silently resetting.
	if err := os.WriteFile(filepath.Join(dir, "matches.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenMatchCache(dir); err == nil {
		t.Error("expected error for corrupt cache file")
	}
}
