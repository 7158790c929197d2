package cmd

import (
	"testing"
	"time"

	"entraflow/internal/session"
)

type fakeSessionReader struct {
	record *session.Record
	err    error
}

func (f *fakeSessionReader) Session(username string) (*session.Record, error) {
	return f.record, f.err
}

func TestShowUserStatus(t *testing.T) {
	origQuiet := flagQuiet
	flagQuiet = true
	t.Cleanup(func() { flagQuiet = origQuiet })

	now := time.Now()
	reader := &fakeSessionReader{record: &session.Record{
		Version:   1,
		Username:  "user@example.com",
		Tokens:    map[string]string{"authorization_code": "ABC123"},
		CreatedAt: now,
		ExpiresAt: now.Add(8 * time.Hour),
	}}

	if err := showUserStatus("user@example.com", reader); err != nil {
		t.Errorf("Expected nil error for a valid session, got %v", err)
	}
}

func TestShowUserStatus_NoSession(t *testing.T) {
	origQuiet := flagQuiet
	flagQuiet = true
	t.Cleanup(func() { flagQuiet = origQuiet })

	reader := &fakeSessionReader{}

	if err := showUserStatus("user@example.com", reader); err == nil {
		t.Error("Expected an error when the user has no valid session")
	}
}
