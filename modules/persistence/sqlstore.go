package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/canvas-sync/domain/canvas"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// CanvasRecord is the stored row of a room's document.
type CanvasRecord struct {
	RoomID    string    `gorm:"primarykey;size:64" json:"room_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Actions   string    `gorm:"type:text;not null" json:"actions"`
	SavedAt   int64     `gorm:"not null" json:"saved_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for CanvasRecord.
func (CanvasRecord) TableName() string {
	return "canvases"
}

// SQLStore keeps documents in a SQL table through gorm.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLStore opens the sqlite database at path and migrates the schema.
func OpenSQLStore(path string, debug bool) (*SQLStore, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an open database and migrates the schema.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&CanvasRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Kind returns the backend name.
func (s *SQLStore) Kind() string {
	return BackendSQLite
}

// Save inserts or replaces the room's row.
func (s *SQLStore) Save(ctx context.Context, doc canvas.Document) error {
	actions, err := json.Marshal(doc.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	record := CanvasRecord{
		RoomID:  doc.ID,
		Name:    doc.Name,
		Actions: string(actions),
		SavedAt: doc.SavedAt,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "actions", "saved_at", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save canvas: %w", err)
	}
	return nil
}

// Load reads the room's row.
func (s *SQLStore) Load(ctx context.Context, roomID string) (*canvas.Document, error) {
	var record CanvasRecord
	if err := s.db.WithContext(ctx).First(&record, "room_id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanvasNotFound
		}
		return nil, fmt.Errorf("failed to find canvas: %w", err)
	}

	doc := &canvas.Document{
		ID:      record.RoomID,
		Name:    record.Name,
		SavedAt: record.SavedAt,
	}
	if err := json.Unmarshal([]byte(record.Actions), &doc.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}
	if doc.Actions == nil {
		doc.Actions = []canvas.Action{}
	}
	return doc, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
