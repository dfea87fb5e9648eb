package downloads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

// RecordInput names one export or send action against a purchase order.
// Location is a free-form label such as "pdf", "xlsx" or "email:<addr>".
type RecordInput struct {
	PurchaseOrderID uuid.UUID
	PONumber        string
	Location        string
	ActorID         uuid.UUID
	ActorName       string
}

// EntryDTO is one audit row as returned to clients.
type EntryDTO struct {
	ID              uuid.UUID `json:"id"`
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	PONumber        string    `json:"po_number"`
	Location        string    `json:"location"`
	ActorID         uuid.UUID `json:"actor_id"`
	ActorName       string    `json:"actor_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListResult wraps a page of audit rows plus the next page cursor.
type ListResult struct {
	Entries    []EntryDTO `json:"entries"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// Service is the download/notification audit trail. Rows are append-only;
// callers on the export path treat Record failures as non-fatal.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*EntryDTO, error)
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService constructs the audit log service.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("downloads repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Record appends one audit row.
func (s *service) Record(ctx context.Context, input RecordInput) (*EntryDTO, error) {
	if input.PurchaseOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	location := strings.TrimSpace(input.Location)
	if location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location label required")
	}

	row := &models.DownloadLog{
		PurchaseOrderID: input.PurchaseOrderID,
		PONumber:        input.PONumber,
		Location:        location,
		ActorID:         input.ActorID,
		ActorName:       input.ActorName,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append download log")
	}
	return fromModel(row), nil
}

// List pages through the audit trail, newest first.
func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list download log")
	}
	entries := make([]EntryDTO, 0, len(rows))
	for i := range rows {
		entries = append(entries, *fromModel(&rows[i]))
	}
	return &ListResult{Entries: entries, NextCursor: nextCursor}, nil
}

func fromModel(row *models.DownloadLog) *EntryDTO {
	return &EntryDTO{
		ID:              row.ID,
		PurchaseOrderID: row.PurchaseOrderID,
		PONumber:        row.PONumber,
		Location:        row.Location,
		ActorID:         row.ActorID,
		ActorName:       row.ActorName,
		CreatedAt:       row.CreatedAt,
	}
}
