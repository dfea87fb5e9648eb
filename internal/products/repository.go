package product

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

// Repository wires together product persistence helpers.
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

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct saves an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product by ID.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// FindByID loads the product with its vendor attached.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Vendor").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the given products, vendors attached, in no particular order.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByAvailability returns every product in the given state. The queue
// reconciler uses this to find queued rows that lost their staged entry.
func (r *Repository) ListByAvailability(ctx context.Context, status enums.AvailabilityStatus) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("po_status = ?", status).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateAvailability flips po_status for the given product when it currently
// sits in fromStatus. include_in_create_po is kept derived from the new
// status. Returns true when a row actually changed, false when the product
// was not in fromStatus (the caller treats that as a no-op).
func (r *Repository) UpdateAvailability(ctx context.Context, id uuid.UUID, fromStatus, toStatus enums.AvailabilityStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{
		"po_status":            toStatus,
		"include_in_create_po": toStatus == enums.AvailabilityStatusAvailable,
		"updated_at":           time.Now().UTC(),
	}
	for key, value := range extra {
		updates[key] = value
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND po_status = ?", id, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkOrdered bulk-transitions queued products to po_created. Rows not in
// queued state are left untouched.
func (r *Repository) MarkOrdered(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ? AND po_status = ?", ids, enums.AvailabilityStatusQueued).
		Updates(map[string]any{
			"po_status":            enums.AvailabilityStatusPOCreated,
			"include_in_create_po": false,
			"updated_at":           time.Now().UTC(),
		}).Error
}

type productListQuery struct {
	Pagination pagination.Params
	Filters    ProductListFilters
	VendorID   *uuid.UUID
}

// ListSummaries returns a page of product rows with the vendor joined in.
// Without an explicit status filter only available products are returned,
// which keeps queued and ordered rows out of the selection view.
func (r *Repository) ListSummaries(ctx context.Context, query productListQuery) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id",
			"p.display_id",
			"p.name",
			"p.brand",
			"p.category",
			"p.unit",
			"p.current_stock",
			"p.reorder_level",
			"p.default_qty",
			"p.po_status",
			"p.include_in_create_po",
			"p.vendor_id",
			"v.name AS vendor_name",
			"v.display_id AS vendor_display_id",
			"p.created_at",
		}, ", ")).
		Joins("LEFT JOIN vendors v ON v.id = p.vendor_id")

	filter := query.Filters
	if filter.POStatus != nil {
		qb = qb.Where("p.po_status = ?", *filter.POStatus)
	} else {
		qb = qb.Where("p.po_status = ?", enums.AvailabilityStatusAvailable)
	}
	if query.VendorID != nil {
		qb = qb.Where("p.vendor_id = ?", *query.VendorID)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(p.name) LIKE ? OR LOWER(p.brand) LIKE ? OR LOWER(p.display_id) LIKE ?)", pattern, pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)

	var records []productSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]ProductSummary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, record.toSummary())
	}

	return &ProductListResult{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

type productSummaryRecord struct {
	ID                uuid.UUID
	DisplayID         sql.NullString
	Name              string
	Brand             sql.NullString
	Category          sql.NullString
	Unit              string
	CurrentStock      int
	ReorderLevel      int
	DefaultQty        int
	POStatus          string
	IncludeInCreatePO bool
	VendorID          sql.NullString
	VendorName        sql.NullString
	VendorDisplayID   sql.NullString
	CreatedAt         time.Time
}

func (r productSummaryRecord) toSummary() ProductSummary {
	summary := ProductSummary{
		ID:                r.ID,
		DisplayID:         nullStringPtr(r.DisplayID),
		Name:              r.Name,
		Brand:             nullStringPtr(r.Brand),
		Category:          nullStringPtr(r.Category),
		Unit:              r.Unit,
		CurrentStock:      r.CurrentStock,
		ReorderLevel:      r.ReorderLevel,
		DefaultQty:        r.DefaultQty,
		POStatus:          r.POStatus,
		IncludeInCreatePO: r.IncludeInCreatePO,
		VendorName:        nullStringPtr(r.VendorName),
		VendorDisplayID:   nullStringPtr(r.VendorDisplayID),
		CreatedAt:         r.CreatedAt,
	}
	if r.VendorID.Valid {
		if parsed, err := uuid.Parse(r.VendorID.String); err == nil {
			summary.VendorID = &parsed
		}
	}
	return summary
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
