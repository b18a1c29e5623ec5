package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/qualitrace/qualitrace/internal/document/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *repository) Get(ctx context.Context, companyID, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		First(&doc, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repository) UpdateContent(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND company_id = ?", doc.ID, doc.CompanyID).
		Updates(map[string]any{
			"title":      doc.Title,
			"content":    doc.Content,
			"file_ref":   doc.FileRef,
			"version":    doc.Version,
			"updated_at": doc.UpdatedAt,
		}).Error
}

func (r *repository) UpdateStatusIfCurrent(ctx context.Context, doc *domain.Document, currentStatus string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND company_id = ? AND status = ?", doc.ID, doc.CompanyID, currentStatus).
		Updates(map[string]any{
			"status":      doc.Status,
			"approved_by": doc.ApprovedBy,
			"approved_at": doc.ApprovedAt,
			"updated_at":  doc.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) InsertVersion(ctx context.Context, version *domain.DocumentVersion) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO document_versions (
			id, company_id, document_id, version, title, content, file_ref,
			editor_id, change_summary, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		version.ID,
		version.CompanyID,
		version.DocumentID,
		version.Version,
		version.Title,
		version.Content,
		version.FileRef,
		version.EditorID,
		version.ChangeSummary,
		version.CreatedAt,
	).Error
}

func (r *repository) ListVersions(ctx context.Context, companyID, documentID snowflake.ID) ([]domain.DocumentVersion, error) {
	var versions []domain.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND document_id = ?", companyID, documentID).
		Order("created_at ASC, id ASC").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}
