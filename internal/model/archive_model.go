package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionArchive is the persisted record of a terminal generation session.
// Live sessions stay in the memory store; this table is the audit trail that
// survives retention eviction.
type SessionArchive struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	Title     string         `gorm:"type:varchar(255);not null"`
	CourseId  string         `gorm:"type:varchar(64);index"`
	Stage     string         `gorm:"type:varchar(32);not null;index"`
	Progress  int            `gorm:"not null"`
	Message   string         `gorm:"type:text"`
	Snapshot  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (SessionArchive) TableName() string {
	return "session_archives"
}
