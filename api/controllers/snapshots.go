package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/martincervantes/procurehub-backend/api/responses"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
)

// SnapshotReader serves the cached first-page projection for one record
// kind. List handlers treat a nil reader as a cache bypass.
type SnapshotReader interface {
	Get(ctx context.Context, kind enums.RecordKind) (json.RawMessage, error)
}

// serveSnapshot answers the default list view (no query parameters) from the
// projection cache. Reports false when the request carries filters or a
// cursor, or when the cache cannot answer; those go to the record store.
func serveSnapshot(w http.ResponseWriter, r *http.Request, cache SnapshotReader, kind enums.RecordKind) bool {
	if cache == nil || len(r.URL.Query()) > 0 {
		return false
	}
	payload, err := cache.Get(r.Context(), kind)
	if err != nil {
		return false
	}
	responses.WriteSuccess(w, payload)
	return true
}
