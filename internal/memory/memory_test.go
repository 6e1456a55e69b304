package memory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	domainErrors "github.com/fluux-agent/gateway/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := New(root, filepath.Join(root, "index.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestStoreMessageAndGetHistory(t *testing.T) {
	s := newTestStore(t)
	jid := "alice@example.com"

	if err := s.StoreMessage(jid, "user", "hello", "", "", nil, ""); err != nil {
		t.Fatalf("StoreMessage: %v", err)
	}
	if err := s.StoreMessage(jid, "assistant", "hi there", "", "", nil, ""); err != nil {
		t.Fatalf("StoreMessage: %v", err)
	}

	msgs, err := s.GetHistory(jid, 20)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Body != "hello" {
		t.Fatalf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Body != "hi there" {
		t.Fatalf("msgs[1] = %+v", msgs[1])
	}
}

func TestGetHistoryRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	jid := "bob@example.com"
	for i := 0; i < 5; i++ {
		if err := s.StoreMessage(jid, "user", "msg", "", "", nil, ""); err != nil {
			t.Fatalf("StoreMessage: %v", err)
		}
	}
	msgs, err := s.GetHistory(jid, 2)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
}

func TestNewSessionArchivesAndClears(t *testing.T) {
	s := newTestStore(t)
	jid := "carol@example.com"
	_ = s.StoreMessage(jid, "user", "hi", "", "", nil, "")

	summary, err := s.NewSession(jid, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if summary == "No active session." {
		t.Fatalf("expected archive summary, got %q", summary)
	}

	count, err := s.MessageCount(jid)
	if err != nil {
		t.Fatalf("MessageCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("MessageCount after new session = %d, want 0", count)
	}
	sessions, err := s.SessionCount(jid)
	if err != nil {
		t.Fatalf("SessionCount: %v", err)
	}
	if sessions != 1 {
		t.Fatalf("SessionCount = %d, want 1", sessions)
	}
}

func TestNewSessionNoop(t *testing.T) {
	s := newTestStore(t)
	summary, err := s.NewSession("dave@example.com", time.Now())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if summary != "No active session." {
		t.Fatalf("summary = %q, want no-op message", summary)
	}
}

func TestForgetErasesHistoryAndContext(t *testing.T) {
	s := newTestStore(t)
	jid := "erin@example.com"
	_ = s.StoreMessage(jid, "user", "hi", "", "", nil, "")
	_ = s.SetUserContext(jid, "likes go")

	if _, err := s.Forget(jid); err != nil {
		t.Fatalf("Forget: %v", err)
	}

	count, _ := s.MessageCount(jid)
	if count != 0 {
		t.Fatalf("MessageCount after forget = %d, want 0", count)
	}
	if _, ok, _ := s.GetUserContext(jid); ok {
		t.Fatalf("expected no user context after forget")
	}
}

func TestUserContextRoundtrip(t *testing.T) {
	s := newTestStore(t)
	jid := "frank@example.com"
	if _, ok, _ := s.GetUserContext(jid); ok {
		t.Fatalf("expected no context before set")
	}
	if err := s.SetUserContext(jid, "prefers terse replies"); err != nil {
		t.Fatalf("SetUserContext: %v", err)
	}
	text, ok, err := s.GetUserContext(jid)
	if err != nil || !ok {
		t.Fatalf("GetUserContext: %q %v %v", text, ok, err)
	}
	if text != "prefers terse replies" {
		t.Fatalf("text = %q", text)
	}
}

func TestKnowledgeStoreAndSearch(t *testing.T) {
	s := newTestStore(t)
	jid := "grace@example.com"

	if err := s.KnowledgeStore(jid, "favorite_language", "Go"); err != nil {
		t.Fatalf("KnowledgeStore: %v", err)
	}
	if err := s.KnowledgeStore(jid, "timezone", "UTC+1"); err != nil {
		t.Fatalf("KnowledgeStore: %v", err)
	}

	count, err := s.KnowledgeCount(jid)
	if err != nil {
		t.Fatalf("KnowledgeCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("KnowledgeCount = %d, want 2", count)
	}

	result, err := s.KnowledgeSearch(jid, "language")
	if err != nil {
		t.Fatalf("KnowledgeSearch: %v", err)
	}
	if result == "" {
		t.Fatalf("expected a match for 'language'")
	}
}

func TestFileCountEmptyWithoutDownloads(t *testing.T) {
	s := newTestStore(t)
	jid := "heidi@example.com"
	count, err := s.FileCount(jid)
	if err != nil {
		t.Fatalf("FileCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("FileCount = %d, want 0", count)
	}
}

func TestForgetWithNoHistoryReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Forget("ivan@example.com")
	if err == nil {
		t.Fatal("expected an error when there is nothing to forget")
	}
	if !domainErrors.IsNotFound(err) {
		t.Fatalf("err = %v, want a NotFoundError", err)
	}
}

func TestForgetRemovesHistoryAndContext(t *testing.T) {
	s := newTestStore(t)
	jid := "judy@example.com"
	if err := s.StoreMessage(jid, "user", "hi", "", "", nil, ""); err != nil {
		t.Fatalf("StoreMessage: %v", err)
	}
	if err := s.SetUserContext(jid, "likes tea"); err != nil {
		t.Fatalf("SetUserContext: %v", err)
	}
	if _, err := s.Forget(jid); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	msgs, err := s.GetHistory(jid, 20)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty history after Forget, got %d messages", len(msgs))
	}
	if _, ok, _ := s.GetUserContext(jid); ok {
		t.Fatalf("expected no user context after Forget")
	}
}

func TestGCRemovesOldSessionsOnly(t *testing.T) {
	s := newTestStore(t)
	jid := "kevin@example.com"

	if err := s.StoreMessage(jid, "user", "hi", "", "", nil, ""); err != nil {
		t.Fatalf("StoreMessage: %v", err)
	}
	if _, err := s.NewSession(jid, time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatalf("NewSession (old): %v", err)
	}

	oldSessions, err := filepath.Glob(filepath.Join(s.jidDir(jid), "sessions", "*.md"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(oldSessions) != 1 {
		t.Fatalf("expected one archived session, got %d", len(oldSessions))
	}
	oldPath := oldSessions[0]
	veryOld := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(oldPath, veryOld, veryOld); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := s.StoreMessage(jid, "user", "second conversation", "", "", nil, ""); err != nil {
		t.Fatalf("StoreMessage: %v", err)
	}
	if _, err := s.NewSession(jid, time.Now()); err != nil {
		t.Fatalf("NewSession (recent): %v", err)
	}

	removed, err := s.GC(24 * time.Hour)
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	remaining, err := filepath.Glob(filepath.Join(s.jidDir(jid), "sessions", "*.md"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected one remaining session after GC, got %d", len(remaining))
	}
	if remaining[0] == oldPath {
		t.Fatalf("GC kept the old session instead of removing it")
	}
}
