// Package audit keeps a trail of chapter-unlock attempts and player creation.
package audit

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-coach/internal/db"
	"chess-coach/internal/middleware"
)

// Event types for audit logging
const (
	EventPlayerCreated       = "player_created"
	EventChapterUnlock       = "chapter_unlock"
	EventChapterUnlockFailed = "chapter_unlock_failed"
	EventProgressReset       = "progress_reset"
)

// AuditEvent represents a security-relevant event.
type AuditEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	EventType string             `bson:"eventType" json:"eventType"`
	PlayerID  string             `bson:"playerId,omitempty" json:"playerId,omitempty"`
	ChapterID int                `bson:"chapterId,omitempty" json:"chapterId,omitempty"`
	IP        string             `bson:"ip" json:"ip"`
	UserAgent string             `bson:"userAgent" json:"userAgent"`
	Details   string             `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Sink stores audit events.
type Sink interface {
	Write(ctx context.Context, e AuditEvent) error
}

// Logger writes events to a sink without blocking the request.
type Logger struct {
	sink Sink
	wg   sync.WaitGroup
}

func NewLogger(sink Sink) *Logger {
	return &Logger{sink: sink}
}

// LogEvent writes an audit event (fire-and-forget).
func (l *Logger) LogEvent(r *http.Request, eventType, playerID string, chapterID int, details string) {
	event := AuditEvent{
		EventType: eventType,
		PlayerID:  playerID,
		ChapterID: chapterID,
		IP:        middleware.GetClientIP(r),
		UserAgent: r.UserAgent(),
		Details:   details,
		CreatedAt: time.Now(),
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.sink.Write(ctx, event); err != nil {
			log.Printf("Audit log write failed: %v", err)
		}
	}()
}

// Wait blocks until every pending write has finished.
func (l *Logger) Wait() {
	l.wg.Wait()
}

// MongoSink inserts events into the audit_log collection.
type MongoSink struct {
	database *db.MongoDB
}

func NewMongoSink(database *db.MongoDB) *MongoSink {
	return &MongoSink{database: database}
}

func (s *MongoSink) Write(ctx context.Context, e AuditEvent) error {
	_, err := s.database.AuditLog().InsertOne(ctx, e)
	return err
}

// LogSink writes events to the process log. Used when no database is
// configured.
type LogSink struct{}

func (LogSink) Write(ctx context.Context, e AuditEvent) error {
	log.Printf("Audit: %s player=%s chapter=%d ip=%s %s", e.EventType, e.PlayerID, e.ChapterID, e.IP, e.Details)
	return nil
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *MemorySink) Write(ctx context.Context, e AuditEvent) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return nil
}

// Events returns a copy of the stored events.
func (s *MemorySink) Events() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEvent(nil), s.events...)
}
