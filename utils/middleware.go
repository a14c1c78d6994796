package utils

import (
	"errors"
	"net/http"

	"resume-review-server/models"
	"resume-review-server/storage"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

// SubjectFromTokenMiddleware extracts the caller's profile id from the JWT
// and stores it in the request context for downstream handlers.
func SubjectFromTokenMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	ctx.Values().Set("profileID", claims.Subject)
	ctx.Next()
}

// AdminOnlyMiddleware ensures the requester's profile carries the admin role.
// The role is read from the store on every request, not from the token, so an
// out-of-band role change takes effect without waiting for a token refresh.
func AdminOnlyMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)

	var profile models.Profile
	if err := storage.DB.Select("id, role").First(&profile, "id = ?", claims.Subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			JSONError(ctx, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		JSONError(ctx, http.StatusBadRequest, "store_error", err.Error())
		return
	}
	if profile.Role != models.RoleAdmin {
		JSONError(ctx, http.StatusForbidden, "forbidden", "admin access required")
		return
	}

	ctx.Values().Set("profileID", claims.Subject)
	ctx.Next()
}
