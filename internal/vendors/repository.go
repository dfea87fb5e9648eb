package vendors

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

// Repository wires together vendor persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new vendor row.
func (r *Repository) Create(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

// Update saves an existing vendor row.
func (r *Repository) Update(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Save(vendor).Error
}

// Delete removes a vendor by ID. Products keep their rows with vendor_id
// nulled by the FK; purchase orders keep the denormalized vendor name.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vendor{}).Error
}

// FindByID loads a vendor by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// FindByNormalizedName looks a vendor up by the trimmed, case-folded name.
// This mirrors the unique index, so a hit means Create would collide.
func (r *Repository) FindByNormalizedName(ctx context.Context, name string) (*models.Vendor, error) {
	normalized := NormalizeName(name)
	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(name)) = ?", normalized).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// ListNormalizedNames returns the normalized form of every vendor name.
// Batch import uses this to sort duplicates out before inserting.
func (r *Repository) ListNormalizedNames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Pluck("LOWER(TRIM(name))", &names).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}

type vendorListQuery struct {
	Pagination pagination.Params
	Query      string
}

// List returns a cursor page of vendors, newest first.
func (r *Repository) List(ctx context.Context, query vendorListQuery) ([]models.Vendor, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Vendor{})
	if search := strings.TrimSpace(query.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(display_id) LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Vendor
	err = qb.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(query.Pagination.Limit)).
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

// ListAll returns every vendor in creation order, for snapshot warming.
func (r *Repository) ListAll(ctx context.Context) ([]models.Vendor, error) {
	var rows []models.Vendor
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// NormalizeName folds a vendor name to the form the uniqueness rule compares.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
