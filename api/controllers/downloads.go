package controllers

import (
	"net/http"

	"github.com/martincervantes/procurehub-backend/api/responses"
	"github.com/martincervantes/procurehub-backend/internal/downloads"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

// DownloadList pages the export audit trail newest-first.
func DownloadList(svc downloads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "downloads service unavailable"))
			return
		}

		page, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
