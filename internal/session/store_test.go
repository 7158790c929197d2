package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"entraflow/internal/browser"
)

func testCookies() []browser.Cookie {
	return []browser.Cookie{
		{Name: "ESTSAUTH", Value: "secret-1", Domain: ".login.microsoftonline.com", Path: "/"},
		{Name: "buid", Value: "secret-2", Domain: ".login.microsoftonline.com", Path: "/", Expires: 1893456000},
		{Name: "fpc", Value: "secret-3", Domain: "login.microsoftonline.com", Path: "/"},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	cookies := testCookies()
	tokens := map[string]string{"authorization_code": "ABC123"}

	if err := store.Save("user@example.com", cookies, tokens); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	record, err := store.Load("user@example.com")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if record == nil {
		t.Fatal("Expected a record, got nil")
	}

	if record.Username != "user@example.com" {
		t.Errorf("Expected username %q, got %q", "user@example.com", record.Username)
	}
	if len(record.Cookies) != len(cookies) {
		t.Fatalf("Expected %d cookies, got %d", len(cookies), len(record.Cookies))
	}
	// Cookie order must be preserved.
	for i, c := range cookies {
		if record.Cookies[i] != c {
			t.Errorf("Cookie %d: expected %+v, got %+v", i, c, record.Cookies[i])
		}
	}
	if record.Tokens["authorization_code"] != "ABC123" {
		t.Errorf("Expected authorization_code ABC123, got %q", record.Tokens["authorization_code"])
	}
	if !record.ExpiresAt.After(record.CreatedAt) {
		t.Error("ExpiresAt must be after CreatedAt")
	}
	if got, want := record.ExpiresAt.Sub(record.CreatedAt), TTL; got != want {
		t.Errorf("Expected TTL %v, got %v", want, got)
	}
}

func TestStore_LoadAbsent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	record, err := store.Load("nobody@example.com")
	if err != nil {
		t.Fatalf("Load of absent record returned error: %v", err)
	}
	if record != nil {
		t.Errorf("Expected nil for absent record, got %+v", record)
	}
}

func TestStore_ExpiredRecordRemovedOnLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Save("user@example.com", testCookies(), nil); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	// Force the record's expiry into the past by rewriting the file.
	path := filepath.Join(dir, "userexample.com.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read record file: %v", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("Failed to decode record file: %v", err)
	}
	record.CreatedAt = time.Now().Add(-9 * time.Hour)
	record.ExpiresAt = time.Now().Add(-1 * time.Hour)
	data, _ = json.Marshal(&record)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to rewrite record file: %v", err)
	}

	if store.IsValid("user@example.com") {
		t.Error("Expected expired session to be invalid")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected expired record file to be removed by load")
	}
}

func TestStore_CorruptRecordRemovedOnLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Save("user@example.com", testCookies(), nil); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	// Truncate the record file to simulate corruption.
	path := filepath.Join(dir, "userexample.com.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"user`), 0600); err != nil {
		t.Fatalf("Failed to garble record file: %v", err)
	}

	record, err := store.Load("user@example.com")
	if err != nil {
		t.Fatalf("Load of corrupt record returned error: %v", err)
	}
	if record != nil {
		t.Errorf("Expected nil for corrupt record, got %+v", record)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected corrupt record file to be removed by load")
	}
}

func TestStore_WrongVersionTreatedAsCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	path := filepath.Join(dir, "user.json")
	body := `{"version":99,"username":"user","cookies":[],"tokens":{},"created_at":"2026-01-01T00:00:00Z","expires_at":"2099-01-01T00:00:00Z"}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("Failed to write record file: %v", err)
	}

	record, err := store.Load("user")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if record != nil {
		t.Error("Expected nil for unknown record version")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected unknown-version record file to be removed")
	}
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Save("user@example.com", testCookies(), nil); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	if err := store.Clear("user@example.com"); err != nil {
		t.Fatalf("First clear failed: %v", err)
	}
	if err := store.Clear("user@example.com"); err != nil {
		t.Fatalf("Second clear failed: %v", err)
	}
	if store.IsValid("user@example.com") {
		t.Error("Expected session to be invalid after clear")
	}
}

func TestStore_ClearAll(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	usernames := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, u := range usernames {
		if err := store.Save(u, testCookies(), nil); err != nil {
			t.Fatalf("Failed to save session for %s: %v", u, err)
		}
	}

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	for _, u := range usernames {
		if store.IsValid(u) {
			t.Errorf("Expected session for %s to be invalid after ClearAll", u)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read store dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty store dir, found %d entries", len(entries))
	}

	// ClearAll on an empty store must not error.
	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll on empty store failed: %v", err)
	}
}

func TestStore_SanitizationConfinesRecords(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "sessions")
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	hostile := []string{"../../etc", "a b@c", "x/y\\z", "..%2F..%2Fpasswd"}
	for _, u := range hostile {
		if err := store.Save(u, testCookies(), nil); err != nil {
			t.Fatalf("Failed to save session for %q: %v", u, err)
		}
		if !store.IsValid(u) {
			t.Errorf("Expected saved session for %q to be valid", u)
		}
	}

	// Every written file must live directly inside the session dir.
	err = filepath.WalkDir(parent, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Dir(path) != dir {
			t.Errorf("Record escaped the session directory: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"user@example.com", "userexample.com"},
		{"../../etc", "....etc"},
		{"a b@c", "abc"},
		{"User_1-2.3", "User_1-2.3"},
		{"amélie", "amlie"},
	}

	for _, test := range tests {
		if got := sanitizeUsername(test.in); got != test.expected {
			t.Errorf("sanitizeUsername(%q) = %q, expected %q", test.in, got, test.expected)
		}
	}
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Save("alice@example.com", testCookies(), nil); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	if err := store.Save("bob@example.com", testCookies(), map[string]string{"access_token": "XYZ"}); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	// A corrupt record should be skipped (and removed), not listed.
	garbled := filepath.Join(dir, "mallory.json")
	if err := os.WriteFile(garbled, []byte("not json"), 0600); err != nil {
		t.Fatalf("Failed to write garbled file: %v", err)
	}

	records, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if _, err := os.Stat(garbled); !os.IsNotExist(err) {
		t.Error("Expected garbled record to be removed by List")
	}
}

func TestStore_FilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Failed to stat session dir: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("Expected session dir mode 0700, got %o", perm)
	}

	if err := store.Save("user", testCookies(), nil); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	info, err = os.Stat(filepath.Join(dir, "user.json"))
	if err != nil {
		t.Fatalf("Failed to stat record file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Expected record file mode 0600, got %o", perm)
	}
}
