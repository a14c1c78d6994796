package routes

import (
	"net/http"

	"resume-review-server/models"
	"resume-review-server/services"
	"resume-review-server/storage"
	"resume-review-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm/clause"
)

// EnsureProfile creates the caller's profile row if it does not exist yet.
// The insert is a single ON CONFLICT DO NOTHING statement keyed on the
// identity's subject id, so concurrent first logins cannot race each other;
// whichever insert lands second is a no-op. Safe to call on every login.
func EnsureProfile(identity *services.Identity) (*models.Profile, error) {
	profile := models.Profile{
		ID:    identity.Subject,
		Email: identity.Email,
	}
	if err := storage.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error; err != nil {
		return nil, err
	}

	// Re-read so the caller sees the stored row (role, existing full name)
	// rather than the insert attempt.
	var existing models.Profile
	if err := storage.DB.First(&existing, "id = ?", identity.Subject).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// GET /api/user/me — profile plus the UI permission set for its role.
func GetMe(ctx iris.Context) {
	profileID := ctx.Values().GetString("profileID")

	var profile models.Profile
	if err := storage.DB.First(&profile, "id = ?", profileID).Error; err != nil {
		utils.JSONError(ctx, http.StatusUnauthorized, "unauthorized", "no profile for session")
		return
	}

	ctx.JSON(iris.Map{
		"profile":     profile,
		"permissions": utils.PermissionsForRole(profile.Role),
	})
}
