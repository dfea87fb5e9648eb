package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/martincervantes/procurehub-backend/pkg/enums"
)

func TestRequireRoleHierarchy(t *testing.T) {
	cases := []struct {
		name     string
		actor    string
		required enums.UserRole
		want     int
	}{
		{"viewer meets viewer", "viewer", enums.UserRoleViewer, http.StatusOK},
		{"viewer blocked from manager", "viewer", enums.UserRoleManager, http.StatusForbidden},
		{"manager meets manager", "manager", enums.UserRoleManager, http.StatusOK},
		{"manager blocked from admin", "manager", enums.UserRoleAdmin, http.StatusForbidden},
		{"admin meets manager", "admin", enums.UserRoleManager, http.StatusOK},
		{"missing role blocked", "", enums.UserRoleViewer, http.StatusForbidden},
		{"unknown role blocked", "superuser", enums.UserRoleViewer, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequireRole(tc.required, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.actor != "" {
				req = req.WithContext(WithRole(req.Context(), tc.actor))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, rec.Code)
			}
		})
	}
}
