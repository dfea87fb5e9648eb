package purchaseorders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

// numberPrefix precedes the zero-padded sequence suffix in PO numbers.
const numberPrefix = "PO-"

// FormatNumber renders a sequence value as PO-0001, PO-0002, ...
// Values past 9999 keep growing digits rather than wrapping.
func FormatNumber(n int64) string {
	return fmt.Sprintf("%s%04d", numberPrefix, n)
}

// Repository persists purchase order headers and their line items.
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

// Create inserts the header together with its item rows.
func (r *Repository) Create(ctx context.Context, order *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID loads a purchase order with its items in line order.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MaxNumberSuffix returns the highest numeric suffix among existing PO
// numbers, zero when the table is empty. Deleted orders still count because
// the scan runs over live rows only; uniqueness across calls holds as long
// as generation is the only writer of new numbers.
func (r *Repository) MaxNumberSuffix(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Raw(`SELECT COALESCE(MAX(CAST(SUBSTR(number, ?) AS INTEGER)), 0) FROM purchase_orders`,
			len(numberPrefix)+1).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

// UpdateDecision moves an order out of created into a terminal status. The
// guard on the current status makes concurrent deciders race safely: only
// one of them observes a changed row.
func (r *Repository) UpdateDecision(ctx context.Context, id uuid.UUID, to enums.POStatus, decidedBy uuid.UUID, decidedByName, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, enums.POStatusCreated).
		Updates(map[string]any{
			"status":           to,
			"decided_by":       decidedBy,
			"decided_by_name":  decidedByName,
			"decided_at":       at,
			"rejection_reason": reason,
			"updated_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes the item rows then the header. Callers run it inside a
// transaction so a partial delete never survives.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", id).
		Delete(&models.PurchaseOrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PurchaseOrder{}).Error
}

type orderListQuery struct {
	Pagination pagination.Params
	Status     *enums.POStatus
}

// List returns a cursor page of orders, newest first, items attached.
func (r *Repository) List(ctx context.Context, query orderListQuery) ([]models.PurchaseOrder, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.PurchaseOrder
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
