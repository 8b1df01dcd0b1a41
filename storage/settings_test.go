package storage

import (
	"testing"
)

func openTestStore(t *testing.T) *SettingsStore {
	t.Helper()
	store, err := Open(t.TempDir() + "/settings.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetReturnsAbsentForUnknownKey(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Get("nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected absent key")
	}
}

func TestPutReplacesExistingValue(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put("k", "one"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put("k", "two"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Get("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != "two" {
		t.Fatalf("value = %q, want %q", got, "two")
	}
}

func TestCheckIntervalDefaultsWhenUnset(t *testing.T) {
	store := openTestStore(t)

	if got := store.CheckInterval(); got != DefaultCheckIntervalSeconds {
		t.Fatalf("CheckInterval() = %d, want %d", got, DefaultCheckIntervalSeconds)
	}
}

func TestIntervalSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/settings.db"

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.PutInt(KeyCheckIntervalSeconds, 45); err != nil {
		t.Fatalf("put interval: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	if got := reopened.CheckInterval(); got != 45 {
		t.Fatalf("CheckInterval() after reopen = %d, want 45", got)
	}
}

func TestBoolRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if store.GetBool(KeyMonitoringEnabled, false) {
		t.Fatal("expected default false")
	}
	if err := store.PutBool(KeyMonitoringEnabled, true); err != nil {
		t.Fatalf("put bool: %v", err)
	}
	if !store.GetBool(KeyMonitoringEnabled, false) {
		t.Fatal("expected true after put")
	}
}
