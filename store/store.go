// Package store persists conversation history in SQLite, one ordered
// message list per call.
package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Message is one conversation turn. Insertion order within a call is
// the conversation order.
type Message struct {
	ID        uint   `gorm:"primarykey"`
	CallID    string `gorm:"index"`
	Role      string
	Content   string
	CreatedAt time.Time
}

// CallSummary aggregates one call's stored conversation.
type CallSummary struct {
	CallID   string
	Messages int
	LastSeen time.Time
}

type Store struct {
	db *gorm.DB
}

// Open creates or opens the conversation database. File paths get WAL
// journaling and a busy timeout; ":memory:" passes through untouched
// for tests.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open conversation db: %w", err)
	}
	if err := db.AutoMigrate(&Message{}); err != nil {
		return nil, fmt.Errorf("migrate conversation db: %w", err)
	}
	return &Store{db: db}, nil
}

// Add appends one turn to a call's history.
func (s *Store) Add(callID, role, content string) error {
	msg := Message{CallID: callID, Role: role, Content: content}
	if err := s.db.Create(&msg).Error; err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	return nil
}

// History returns a call's turns in conversation order.
func (s *Store) History(callID string) ([]Message, error) {
	var msgs []Message
	err := s.db.Where("call_id = ?", callID).Order("id").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

// ClearCall drops every stored turn for one call.
func (s *Store) ClearCall(callID string) error {
	if err := s.db.Where("call_id = ?", callID).Delete(&Message{}).Error; err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Calls summarizes stored conversations, oldest first.
func (s *Store) Calls() ([]CallSummary, error) {
	var out []CallSummary
	err := s.db.Model(&Message{}).
		Select("call_id, count(*) as messages, max(created_at) as last_seen").
		Group("call_id").
		Order("min(id)").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	return out, nil
}

// Ping verifies the underlying connection, for health checks.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
