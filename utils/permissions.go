package utils

import "resume-review-server/models"

// UI permissions. The header and both dashboards used to re-derive gating
// state independently; PermissionsForRole is the single decision they all
// consume now (via /api/user/me).
const (
	PermSubmitResume   = "submit_resume"
	PermViewOwn        = "view_own_submissions"
	PermReviewAll      = "review_submissions"
	PermOpenAdminPanel = "open_admin_panel"
)

func PermissionsForRole(role string) []string {
	perms := []string{PermSubmitResume, PermViewOwn}
	if role == models.RoleAdmin {
		perms = append(perms, PermReviewAll, PermOpenAdminPanel)
	}
	return perms
}
