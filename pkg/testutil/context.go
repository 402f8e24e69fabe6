// Package testutil provides common helpers for handler and integration tests.
package testutil

import (
	"net/http"

	id "losflow/pkg/domain"
	"losflow/pkg/requestcontext"
)

// AsDepartment injects the department and actor the auth middleware would have
// extracted from the dashboard token.
func AsDepartment(req *http.Request, dept id.Department, actor string) *http.Request {
	ctx := requestcontext.WithDepartment(req.Context(), dept)
	ctx = requestcontext.WithActor(ctx, actor)
	return req.WithContext(ctx)
}
