package purchaseorders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/internal/downloads"
	product "github.com/martincervantes/procurehub-backend/internal/products"
	"github.com/martincervantes/procurehub-backend/internal/queue"
	"github.com/martincervantes/procurehub-backend/internal/refs"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stagingQueue interface {
	Entries(ctx context.Context) ([]queue.Entry, error)
	RemoveProcessed(ctx context.Context, productIDs []uuid.UUID) error
}

type auditLog interface {
	Record(ctx context.Context, input downloads.RecordInput) (*downloads.EntryDTO, error)
}

type changeNotifier interface {
	Invalidate(ctx context.Context, kind enums.RecordKind)
}

// Service owns purchase order generation, the decision lifecycle and the
// export operations that feed the audit log.
type Service interface {
	Generate(ctx context.Context, actor Actor, selectedProductRefs []string) ([]PurchaseOrderDTO, error)
	Approve(ctx context.Context, actor Actor, ref string) (*PurchaseOrderDTO, error)
	Reject(ctx context.Context, actor Actor, ref, reason string) (*PurchaseOrderDTO, error)
	ApproveBulk(ctx context.Context, actor Actor, orderRefs []string) (*DecisionReport, error)
	RejectBulk(ctx context.Context, actor Actor, orderRefs []string, reason string) (*DecisionReport, error)
	Delete(ctx context.Context, actor Actor, ref string) error
	Get(ctx context.Context, ref string) (*PurchaseOrderDTO, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Download(ctx context.Context, actor Actor, ref, format string) (*Document, error)
	Send(ctx context.Context, actor Actor, ref, recipient string) (*Document, error)
}

type service struct {
	repo     *Repository
	products *product.Repository
	staging  stagingQueue
	resolver *refs.Resolver
	tx       txRunner
	audit    auditLog
	changes  changeNotifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the purchase order service.
func NewService(repo *Repository, products *product.Repository, staging stagingQueue, resolver *refs.Resolver, tx txRunner, audit auditLog, changes changeNotifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if staging == nil {
		return nil, fmt.Errorf("staging queue required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("ref resolver required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit log required")
	}
	if changes == nil {
		return nil, fmt.Errorf("change notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		products: products,
		staging:  staging,
		resolver: resolver,
		tx:       tx,
		audit:    audit,
		changes:  changes,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Get returns one order with its items by uuid or PO number.
func (s *service) Get(ctx context.Context, ref string) (*PurchaseOrderDTO, error) {
	order, err := s.resolver.ResolvePurchaseOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	loaded, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}
	return fromModel(loaded), nil
}

// List pages through orders, optionally filtered by lifecycle status.
func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid purchase order status")
	}
	rows, nextCursor, err := s.repo.List(ctx, orderListQuery{
		Pagination: input.Pagination,
		Status:     input.Status,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}
	orders := make([]PurchaseOrderDTO, 0, len(rows))
	for i := range rows {
		orders = append(orders, *fromModel(&rows[i]))
	}
	return &ListResult{Orders: orders, NextCursor: nextCursor}, nil
}

// Download produces the export payload for one order and appends an audit
// row. The audit append is best-effort: a log failure never blocks the
// export itself.
func (s *service) Download(ctx context.Context, actor Actor, ref, format string) (*Document, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" && format != "xlsx" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported document format").
			WithDetails(map[string]any{"format": format})
	}
	return s.export(ctx, actor, ref, format)
}

// Send produces the export payload addressed to a recipient and appends an
// audit row with the email location label.
func (s *service) Send(ctx context.Context, actor Actor, ref, recipient string) (*Document, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	return s.export(ctx, actor, ref, "email:"+recipient)
}

func (s *service) export(ctx context.Context, actor Actor, ref, location string) (*Document, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	order, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Record(ctx, downloads.RecordInput{
		PurchaseOrderID: order.ID,
		PONumber:        order.Number,
		Location:        location,
		ActorID:         actor.ID,
		ActorName:       actor.Name,
	}); err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"po_number": order.Number,
			"location":  location,
		}), "failed to append download log", err)
	}

	return &Document{
		Order:       *order,
		Location:    location,
		GeneratedAt: s.now().UTC(),
	}, nil
}
