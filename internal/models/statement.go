package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatementPending    = "PENDING"
	StatementProcessing = "PROCESSING"
	StatementCompleted  = "COMPLETED"
	StatementFailed     = "FAILED"
)

const (
	FileTypeCSV      = "CSV"
	FileTypeMarkdown = "MARKDOWN"
	FileTypePDF      = "PDF"
)

type Statement struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	FileName          string
	FileType          string
	Status            string `gorm:"index"`
	TotalTransactions int
	MatchedCount      int
	UnmatchedCount    int
	ErrorMessage      string
	UploadedAt        time.Time
	ProcessedAt       *time.Time
}

func (s *Statement) MarkCompleted() {
	now := time.Now()
	s.Status = StatementCompleted
	s.ProcessedAt = &now
}

func (s *Statement) MarkFailed(msg string) {
	now := time.Now()
	s.Status = StatementFailed
	s.ErrorMessage = msg
	s.ProcessedAt = &now
}
