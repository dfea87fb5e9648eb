package controllers

import (
	"net/http"
	"strings"

	"github.com/martincervantes/procurehub-backend/api/responses"
	"github.com/martincervantes/procurehub-backend/api/validators"
	productsvc "github.com/martincervantes/procurehub-backend/internal/products"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

type createProductRequest struct {
	Name         string  `json:"name" validate:"required"`
	Brand        *string `json:"brand,omitempty"`
	Category     *string `json:"category,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	CurrentStock int     `json:"current_stock" validate:"omitempty,min=0"`
	ReorderLevel int     `json:"reorder_level" validate:"omitempty,min=0"`
	DefaultQty   int     `json:"default_qty" validate:"omitempty,min=1"`
	VendorRef    *string `json:"vendor_ref,omitempty"`
}

func (r createProductRequest) toInput() (productsvc.CreateProductInput, error) {
	unit := enums.ProductUnit(strings.TrimSpace(r.Unit))
	if r.Unit != "" {
		parsed, err := enums.ParseProductUnit(strings.TrimSpace(r.Unit))
		if err != nil {
			return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
		}
		unit = parsed
	}
	return productsvc.CreateProductInput{
		Name:         strings.TrimSpace(r.Name),
		Brand:        r.Brand,
		Category:     r.Category,
		Unit:         unit,
		CurrentStock: r.CurrentStock,
		ReorderLevel: r.ReorderLevel,
		DefaultQty:   r.DefaultQty,
		VendorRef:    r.VendorRef,
	}, nil
}

type updateProductRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Brand        *string `json:"brand,omitempty"`
	Category     *string `json:"category,omitempty"`
	Unit         *string `json:"unit,omitempty"`
	CurrentStock *int    `json:"current_stock,omitempty" validate:"omitempty,min=0"`
	ReorderLevel *int    `json:"reorder_level,omitempty" validate:"omitempty,min=0"`
	DefaultQty   *int    `json:"default_qty,omitempty" validate:"omitempty,min=1"`
	VendorRef    *string `json:"vendor_ref,omitempty"`
}

func (r updateProductRequest) toInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Name:         r.Name,
		Brand:        r.Brand,
		Category:     r.Category,
		CurrentStock: r.CurrentStock,
		ReorderLevel: r.ReorderLevel,
		DefaultQty:   r.DefaultQty,
		VendorRef:    r.VendorRef,
	}
	if r.Unit != nil {
		parsed, err := enums.ParseProductUnit(strings.TrimSpace(*r.Unit))
		if err != nil {
			return productsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
		}
		input.Unit = &parsed
	}
	return input, nil
}

// ProductCreate handles catalog product creation.
func ProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductGet resolves a product by durable id or display id.
func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		ref, err := refParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductList pages the catalog. Without a po_status filter only available
// products are shown, which is the PO selection view. The default view (no
// filters, no cursor) is answered from the snapshot cache when one is wired.
func ProductList(svc productsvc.Service, cache SnapshotReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		if serveSnapshot(w, r, cache, enums.RecordKindProducts) {
			return
		}

		page, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := productsvc.ProductListFilters{
			Query: strings.TrimSpace(r.URL.Query().Get("q")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("po_status")); raw != "" {
			status, err := enums.ParseAvailabilityStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid po_status"))
				return
			}
			filters.POStatus = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("vendor")); raw != "" {
			filters.VendorRef = &raw
		}

		result, err := svc.List(r.Context(), productsvc.ListProductsInput{
			Filters:    filters,
			Pagination: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ProductUpdate mutates catalog fields.
func ProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		ref, err := refParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), ref, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductDelete removes a product, unstaging it from the queue first.
func ProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		ref, err := refParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), ref); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type bulkRefsRequest struct {
	Refs []string `json:"refs" validate:"required,min=1,dive,required"`
}

// ProductBulkDelete removes a batch of products, reporting unresolved refs.
func ProductBulkDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload bulkRefsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.DeleteBulk(r.Context(), payload.Refs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
