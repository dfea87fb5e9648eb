package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/martincervantes/procurehub-backend/api/middleware"
	"github.com/martincervantes/procurehub-backend/internal/purchaseorders"
)

type orderServiceStub struct {
	generateActor purchaseorders.Actor
	generateRefs  []string
	rejectReason  string
	downloadFmt   string
	sendRecipient string
	bulkRefs      []string
}

func (s *orderServiceStub) Generate(ctx context.Context, actor purchaseorders.Actor, refs []string) ([]purchaseorders.PurchaseOrderDTO, error) {
	s.generateActor = actor
	s.generateRefs = refs
	return []purchaseorders.PurchaseOrderDTO{}, nil
}

func (s *orderServiceStub) Approve(ctx context.Context, actor purchaseorders.Actor, ref string) (*purchaseorders.PurchaseOrderDTO, error) {
	return &purchaseorders.PurchaseOrderDTO{}, nil
}

func (s *orderServiceStub) Reject(ctx context.Context, actor purchaseorders.Actor, ref, reason string) (*purchaseorders.PurchaseOrderDTO, error) {
	s.rejectReason = reason
	return &purchaseorders.PurchaseOrderDTO{}, nil
}

func (s *orderServiceStub) ApproveBulk(ctx context.Context, actor purchaseorders.Actor, refs []string) (*purchaseorders.DecisionReport, error) {
	s.bulkRefs = refs
	return &purchaseorders.DecisionReport{Decided: refs}, nil
}

func (s *orderServiceStub) RejectBulk(ctx context.Context, actor purchaseorders.Actor, refs []string, reason string) (*purchaseorders.DecisionReport, error) {
	s.bulkRefs = refs
	s.rejectReason = reason
	return &purchaseorders.DecisionReport{Decided: refs}, nil
}

func (s *orderServiceStub) Delete(context.Context, purchaseorders.Actor, string) error { return nil }

func (s *orderServiceStub) Get(context.Context, string) (*purchaseorders.PurchaseOrderDTO, error) {
	return &purchaseorders.PurchaseOrderDTO{}, nil
}

func (s *orderServiceStub) List(context.Context, purchaseorders.ListInput) (*purchaseorders.ListResult, error) {
	return &purchaseorders.ListResult{}, nil
}

func (s *orderServiceStub) Download(ctx context.Context, actor purchaseorders.Actor, ref, format string) (*purchaseorders.Document, error) {
	s.downloadFmt = format
	return &purchaseorders.Document{}, nil
}

func (s *orderServiceStub) Send(ctx context.Context, actor purchaseorders.Actor, ref, recipient string) (*purchaseorders.Document, error) {
	s.sendRecipient = recipient
	return &purchaseorders.Document{}, nil
}

func withActor(r *http.Request, userID uuid.UUID, name string) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithActorName(ctx, name)
	return r.WithContext(ctx)
}

func TestPurchaseOrderGenerateAcceptsEmptyBody(t *testing.T) {
	stub := &orderServiceStub{}
	handler := PurchaseOrderGenerate(stub, nil)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders/generate", nil)
	req = withActor(req, userID, "Casey Ops")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if stub.generateActor.ID != userID {
		t.Fatal("expected actor id from context")
	}
	if stub.generateActor.Name != "Casey Ops" {
		t.Fatalf("expected actor name from context, got %q", stub.generateActor.Name)
	}
	if stub.generateRefs != nil {
		t.Fatal("expected whole-queue generation without a selection")
	}
}

func TestPurchaseOrderGeneratePassesSelection(t *testing.T) {
	stub := &orderServiceStub{}
	handler := PurchaseOrderGenerate(stub, nil)

	body := bytes.NewBufferString(`{"product_refs":["P001","P002"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders/generate", body)
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, uuid.New(), "Casey Ops")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if len(stub.generateRefs) != 2 || stub.generateRefs[0] != "P001" {
		t.Fatalf("expected selection passed through, got %v", stub.generateRefs)
	}
}

func TestPurchaseOrderGenerateRequiresUserContext(t *testing.T) {
	stub := &orderServiceStub{}
	handler := PurchaseOrderGenerate(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders/generate", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPurchaseOrderRejectPassesOptionalReason(t *testing.T) {
	stub := &orderServiceStub{}
	handler := PurchaseOrderReject(stub, nil)

	body := bytes.NewBufferString(`{"reason":"price too high"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders/PO-2024-0001/reject", body)
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, uuid.New(), "Casey Ops")
	req = withRouteParam(req, "ref", "PO-2024-0001")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if stub.rejectReason != "price too high" {
		t.Fatalf("expected reason passed through, got %q", stub.rejectReason)
	}
}

func TestPurchaseOrderRejectAcceptsEmptyBody(t *testing.T) {
	stub := &orderServiceStub{}
	handler := PurchaseOrderReject(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders/PO-2024-0001/reject", nil)
	req = withActor(req, uuid.New(), "Casey Ops")
	req = withRouteParam(req, "ref", "PO-2024-0001")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if stub.rejectReason != "" {
		t.Fatalf("expected empty reason, got %q", stub.rejectReason)
	}
}

func TestPurchaseOrderBulkApproveRequiresRefs(t *testing.T) {
	stub := &orderServiceStub{}
	handler := PurchaseOrderBulkApprove(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders/bulk-approve", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, uuid.New(), "Casey Ops")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if stub.bulkRefs != nil {
		t.Fatal("service should not be called without refs")
	}
}

func TestPurchaseOrderDownloadPassesFormat(t *testing.T) {
	stub := &orderServiceStub{}
	handler := PurchaseOrderDownload(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders/PO-2024-0001/download?format=csv", nil)
	req = withActor(req, uuid.New(), "Casey Ops")
	req = withRouteParam(req, "ref", "PO-2024-0001")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if stub.downloadFmt != "csv" {
		t.Fatalf("expected csv format, got %q", stub.downloadFmt)
	}
}

func TestPurchaseOrderSendValidatesRecipient(t *testing.T) {
	stub := &orderServiceStub{}
	handler := PurchaseOrderSend(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders/PO-2024-0001/send", bytes.NewBufferString(`{"recipient":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, uuid.New(), "Casey Ops")
	req = withRouteParam(req, "ref", "PO-2024-0001")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if stub.sendRecipient != "" {
		t.Fatal("service should not be called with a bad recipient")
	}
}
