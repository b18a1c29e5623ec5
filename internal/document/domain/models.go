// Package domain contains the controlled document model and its append-only
// version log.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Document statuses. Approved, rejected, completed and cancelled are terminal
// for the workflow; later edits create a new version instead of re-opening it.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Document types.
const (
	TypeURS      = "urs"
	TypeFS       = "fs"
	TypeDS       = "ds"
	TypeIQ       = "iq"
	TypeOQ       = "oq"
	TypePQ       = "pq"
	TypeSOP      = "sop"
	TypeProtocol = "protocol"
	TypeReport   = "report"
)

// ValidType reports whether documentType is a known document type.
func ValidType(documentType string) bool {
	switch documentType {
	case TypeURS, TypeFS, TypeDS, TypeIQ, TypeOQ, TypePQ, TypeSOP, TypeProtocol, TypeReport:
		return true
	}
	return false
}

// InitialVersion is the version assigned to a newly created document.
const InitialVersion = "1.0"

// NextVersion increments the minor component of a major.minor version
// string. Unparseable versions restart at the initial version.
func NextVersion(version string) string {
	parts := strings.SplitN(strings.TrimSpace(version), ".", 2)
	if len(parts) != 2 {
		return InitialVersion
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return InitialVersion
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return InitialVersion
	}
	return fmt.Sprintf("%d.%d", major, minor+1)
}

// Document is the live row; its history lives in DocumentVersion.
type Document struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID    snowflake.ID      `gorm:"not null;index" json:"company_id"`
	ProjectID    *snowflake.ID     `gorm:"index" json:"project_id,omitempty"`
	SystemID     *snowflake.ID     `gorm:"index" json:"system_id,omitempty"`
	Title        string            `gorm:"type:text;not null" json:"title"`
	DocumentType string            `gorm:"type:text;not null" json:"document_type"`
	Content      string            `gorm:"type:text" json:"content"`
	FileRef      string            `gorm:"type:text;column:file_ref" json:"file_ref"`
	Version      string            `gorm:"type:text;not null" json:"version"`
	Status       string            `gorm:"type:text;not null" json:"status"`
	AuthorID     snowflake.ID      `gorm:"not null" json:"author_id"`
	ApprovedBy   *snowflake.ID     `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time        `json:"approved_at,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "documents" }

// DocumentVersion is one frozen snapshot of a document, written before the
// live row mutates. Rows are never updated or deleted.
type DocumentVersion struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID `gorm:"not null;index" json:"company_id"`
	DocumentID    snowflake.ID `gorm:"not null;index" json:"document_id"`
	Version       string       `gorm:"type:text;not null" json:"version"`
	Title         string       `gorm:"type:text;not null" json:"title"`
	Content       string       `gorm:"type:text" json:"content"`
	FileRef       string       `gorm:"type:text;column:file_ref" json:"file_ref"`
	EditorID      snowflake.ID `gorm:"not null" json:"editor_id"`
	ChangeSummary string       `gorm:"type:text" json:"change_summary"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (DocumentVersion) TableName() string { return "document_versions" }
