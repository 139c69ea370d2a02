// Package archive persists terminal generation sessions so the audit trail
// outlives the memory store's retention window.
package archive

import (
	"context"
	"encoding/json"

	"ai-lessongen-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ISessionArchiveRepository interface {
	Save(ctx context.Context, session *model.GenerationSession) error
	FindBySessionId(ctx context.Context, sessionId string) (*model.SessionArchive, error)
}

type sessionArchiveRepository struct {
	db *gorm.DB
}

func NewSessionArchiveRepository(db *gorm.DB) ISessionArchiveRepository {
	return &sessionArchiveRepository{db: db}
}

// Migrate creates or updates the archive schema. Nil db is a no-op, matching
// the repository's nil-db behaviour.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&model.SessionArchive{})
}

// Save writes the terminal snapshot of a session. A nil-db repository is a
// no-op so deployments without an archive database still run.
func (r *sessionArchiveRepository) Save(ctx context.Context, session *model.GenerationSession) error {
	if r.db == nil {
		return nil
	}

	snap := session.Snapshot()
	snapBytes, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	record := model.SessionArchive{
		Id:        uuid.New(),
		SessionId: session.Id,
		Title:     session.Title,
		CourseId:  session.CourseId,
		Stage:     string(snap.Stage),
		Progress:  snap.Progress,
		Message:   snap.Message,
		Snapshot:  datatypes.JSON(snapBytes),
	}
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *sessionArchiveRepository) FindBySessionId(ctx context.Context, sessionId string) (*model.SessionArchive, error) {
	if r.db == nil {
		return nil, gorm.ErrRecordNotFound
	}

	var record model.SessionArchive
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionId).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
