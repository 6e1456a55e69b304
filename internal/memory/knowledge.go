package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainErrors "github.com/fluux-agent/gateway/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// knowledgeEntry is one JSONL record in a JID's knowledge.jsonl log — the
// source of truth for that JID's durable facts.
type knowledgeEntry struct {
	Key       string    `json:"key"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// knowledgeRow is the derived SQLite read model rebuilt from the JSONL
// logs on startup; it exists purely to make knowledge_search fast without
// scanning every JID's log on every query.
type knowledgeRow struct {
	Jid       string `gorm:"primaryKey"`
	Key       string `gorm:"primaryKey"`
	Content   string
	UpdatedAt time.Time
}

func (knowledgeRow) TableName() string { return "knowledge_index" }

type knowledgeIndex struct {
	db *gorm.DB
}

func openKnowledgeIndex(path string) (*knowledgeIndex, error) {
	if path == "" {
		return &knowledgeIndex{db: nil}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create knowledge index dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}
	if err := db.AutoMigrate(&knowledgeRow{}); err != nil {
		return nil, fmt.Errorf("migrate knowledge index: %w", err)
	}
	return &knowledgeIndex{db: db}, nil
}

func (k *knowledgeIndex) upsert(jid string, entry knowledgeEntry) error {
	if k.db == nil {
		return nil
	}
	row := knowledgeRow{Jid: sanitizeJidDir(jid), Key: entry.Key, Content: entry.Content, UpdatedAt: entry.Timestamp}
	if err := k.db.Save(&row).Error; err != nil {
		return domainErrors.NewInternalErrorWithCause("failed to upsert knowledge row", err)
	}
	return nil
}

func (k *knowledgeIndex) search(jid, query string) ([]knowledgeRow, error) {
	if k.db == nil {
		return nil, nil
	}
	var rows []knowledgeRow
	like := "%" + query + "%"
	err := k.db.Where("jid = ? AND (key LIKE ? OR content LIKE ?)", sanitizeJidDir(jid), like, like).
		Order("updated_at DESC").Limit(20).Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalErrorWithCause("failed to search knowledge index", err)
	}
	return rows, nil
}

// KnowledgeStore appends a fact to the JID's knowledge.jsonl log and
// upserts the derived SQLite row used by knowledge_search.
func (s *Store) KnowledgeStore(jid, key, content string) error {
	lock := s.lockFor(jid)
	lock.Lock()
	defer lock.Unlock()

	if err := s.ensureDirs(jid); err != nil {
		return err
	}

	entry := knowledgeEntry{Key: key, Content: content, Timestamp: time.Now().UTC()}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal knowledge entry: %w", err)
	}

	f, err := os.OpenFile(s.knowledgeLogPath(jid), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open knowledge log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append knowledge log: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	return s.knowledge.upsert(jid, entry)
}

// KnowledgeSearch returns a text summary of knowledge entries matching
// query for jid. Falls back to a linear scan of the JID's knowledge.jsonl
// whenever the index returns no rows, which includes running without an
// index (empty index path).
func (s *Store) KnowledgeSearch(jid, query string) (string, error) {
	rows, err := s.knowledge.search(jid, query)
	if err != nil {
		return "", fmt.Errorf("search knowledge index: %w", err)
	}
	if len(rows) == 0 {
		return s.scanKnowledgeLog(jid, query)
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "- %s: %s\n", r.Key, r.Content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Store) scanKnowledgeLog(jid, query string) (string, error) {
	lines, err := readJSONLLines(s.knowledgeLogPath(jid))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	q := strings.ToLower(query)
	for _, line := range lines {
		var entry knowledgeEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(entry.Key), q) || strings.Contains(strings.ToLower(entry.Content), q) {
			fmt.Fprintf(&b, "- %s: %s\n", entry.Key, entry.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// rebuildKnowledgeIndex replays every JID's knowledge.jsonl into the
// SQLite index on startup, so deleting the .db file is always safe.
func (s *Store) rebuildKnowledgeIndex() error {
	if s.knowledge.db == nil {
		return nil
	}
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read memory root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		jid := e.Name()
		lines, err := readJSONLLines(filepath.Join(s.root, jid, "knowledge.jsonl"))
		if err != nil {
			return err
		}
		for _, line := range lines {
			var entry knowledgeEntry
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				continue
			}
			if err := s.knowledge.upsert(jid, entry); err != nil {
				return fmt.Errorf("rebuild knowledge index for %s: %w", jid, err)
			}
		}
	}
	return nil
}
