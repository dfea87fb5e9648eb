package downloads

import (
	"context"

	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

// Repository persists download audit rows. The table is append-only; there
// is deliberately no update or delete helper.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create appends one audit row.
func (r *Repository) Create(ctx context.Context, row *models.DownloadLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// List returns a cursor page of audit rows, newest first.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.DownloadLog, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.DownloadLog{})
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.DownloadLog
	err = qb.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}
