package purchaseorders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
)

// Approve moves a created order to approved. Approving an already-approved
// order is an idempotent no-op; approving a rejected order fails.
func (s *service) Approve(ctx context.Context, actor Actor, ref string) (*PurchaseOrderDTO, error) {
	order, _, err := s.decide(ctx, actor, ref, enums.POStatusApproved, "")
	return order, err
}

// Reject moves a created order to rejected, storing the optional reason.
func (s *service) Reject(ctx context.Context, actor Actor, ref, reason string) (*PurchaseOrderDTO, error) {
	order, _, err := s.decide(ctx, actor, ref, enums.POStatusRejected, strings.TrimSpace(reason))
	return order, err
}

// ApproveBulk applies the approve rules per reference. One reference's
// failure never aborts the rest.
func (s *service) ApproveBulk(ctx context.Context, actor Actor, orderRefs []string) (*DecisionReport, error) {
	return s.decideBulk(ctx, actor, orderRefs, enums.POStatusApproved, "")
}

// RejectBulk applies the reject rules per reference.
func (s *service) RejectBulk(ctx context.Context, actor Actor, orderRefs []string, reason string) (*DecisionReport, error) {
	return s.decideBulk(ctx, actor, orderRefs, enums.POStatusRejected, strings.TrimSpace(reason))
}

// Delete removes an order and its items in one transaction. The router
// restricts this to admins; the operation is irreversible.
func (s *service) Delete(ctx context.Context, actor Actor, ref string) error {
	if actor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	order, err := s.resolver.ResolvePurchaseOrder(ctx, ref)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, order.ID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete purchase order")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"po_number": order.Number,
		"actor_id":  actor.ID.String(),
	}), "purchase order deleted")
	s.changes.Invalidate(ctx, enums.RecordKindPurchaseOrders)
	return nil
}

// decide applies a terminal decision to one order. The bool reports whether
// a row actually changed, letting the bulk variants tell decisions apart
// from idempotent repeats.
func (s *service) decide(ctx context.Context, actor Actor, ref string, to enums.POStatus, reason string) (*PurchaseOrderDTO, bool, error) {
	if actor.ID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	order, err := s.resolver.ResolvePurchaseOrder(ctx, ref)
	if err != nil {
		return nil, false, err
	}

	if order.Status == to {
		loaded, err := s.Get(ctx, order.ID.String())
		return loaded, false, err
	}
	if order.Status.IsTerminal() {
		return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "purchase order already decided").
			WithDetails(map[string]any{
				"number":  order.Number,
				"status":  order.Status.String(),
				"decided": to.String(),
			})
	}

	changed, err := s.repo.UpdateDecision(ctx, order.ID, to, actor.ID, actor.Name, reason, s.now().UTC())
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store purchase order decision")
	}
	if !changed {
		// Lost a race with another decider; re-apply the terminal rules
		// against what the store holds now.
		current, err := s.repo.FindByID(ctx, order.ID)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
		}
		if current.Status == to {
			return fromModel(current), false, nil
		}
		return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "purchase order already decided").
			WithDetails(map[string]any{
				"number": current.Number,
				"status": current.Status.String(),
			})
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"po_number": order.Number,
		"status":    to.String(),
		"actor_id":  actor.ID.String(),
	}), "purchase order decided")
	s.changes.Invalidate(ctx, enums.RecordKindPurchaseOrders)

	loaded, err := s.Get(ctx, order.ID.String())
	return loaded, true, err
}

func (s *service) decideBulk(ctx context.Context, actor Actor, orderRefs []string, to enums.POStatus, reason string) (*DecisionReport, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if len(orderRefs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no purchase order references given")
	}

	report := &DecisionReport{Failed: map[string]string{}}
	for _, ref := range orderRefs {
		_, changed, err := s.decide(ctx, actor, ref, to, reason)
		switch {
		case err != nil:
			report.Failed[ref] = err.Error()
		case changed:
			report.Decided = append(report.Decided, ref)
		default:
			report.Skipped = append(report.Skipped, ref)
		}
	}
	return report, nil
}
