package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/martincervantes/procurehub-backend/api/middleware"
	"github.com/martincervantes/procurehub-backend/api/validators"
	"github.com/martincervantes/procurehub-backend/internal/purchaseorders"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

// actorFromContext builds the acting operator from the auth claims seeded by
// the middleware.
func actorFromContext(r *http.Request) (purchaseorders.Actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return purchaseorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return purchaseorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return purchaseorders.Actor{
		ID:   id,
		Name: middleware.ActorNameFromContext(r.Context()),
	}, nil
}

// paginationFromQuery reads the shared limit/cursor query knobs.
func paginationFromQuery(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// refParam extracts the {ref} URL segment, which accepts either the durable
// uuid or the short display id.
func refParam(r *http.Request) (string, error) {
	ref := strings.TrimSpace(chi.URLParam(r, "ref"))
	if ref == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	return ref, nil
}
