package routes

import (
	"net/http"
	"time"

	"resume-review-server/models"
	"resume-review-server/storage"
	"resume-review-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
)

const adminListLimit = 100

type adminSubmissionOwner struct {
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}

type adminSubmissionItem struct {
	ID           string               `json:"id"`
	ProfileID    string               `json:"user_id"`
	OriginalName string               `json:"original_name"`
	FileURL      string               `json:"file_url"`
	Status       string               `json:"status"`
	Score        *float64             `json:"score"`
	AdminNotes   *string              `json:"admin_notes"`
	CreatedAt    time.Time            `json:"created_at"`
	Profile      adminSubmissionOwner `json:"profiles"`
}

// GET /api/admin/submissions — up to 100 newest submissions joined with the
// owner's email and display name.
func AdminListSubmissions(ctx iris.Context) {
	var rows []models.Submission
	if err := storage.DB.Preload("Profile").
		Order("created_at DESC").
		Limit(adminListLimit).
		Find(&rows).Error; err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "store_error", err.Error())
		return
	}

	items := make([]adminSubmissionItem, 0, len(rows))
	for _, s := range rows {
		items = append(items, adminSubmissionItem{
			ID:           s.ID,
			ProfileID:    s.ProfileID,
			OriginalName: s.OriginalName,
			FileURL:      s.FileURL,
			Status:       s.Status,
			Score:        s.Score,
			AdminNotes:   s.AdminNotes,
			CreatedAt:    s.CreatedAt,
			Profile: adminSubmissionOwner{
				Email:    s.Profile.Email,
				FullName: s.Profile.FullName,
			},
		})
	}

	ctx.JSON(iris.Map{"submissions": items})
}

type patchSubmissionInput struct {
	Status     *string  `json:"status"`
	Score      *float64 `json:"score" validate:"omitempty,gte=0,lte=100"`
	AdminNotes *string  `json:"admin_notes"`
}

// PATCH /api/admin/submissions/{id} — partial update over the allow-listed
// fields {status, score, admin_notes}. Absent fields are left untouched;
// anything else in the payload is ignored. Status and score are re-validated
// here, not just in the admin console's form controls.
func AdminPatchSubmission(ctx iris.Context) {
	id := ctx.Params().Get("id")

	var input patchSubmissionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Status != nil && !slices.Contains(models.SubmissionStatuses, *input.Status) {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_status", "status must be one of pending, approved, needs_revision, rejected")
		return
	}

	updates := map[string]interface{}{}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.Score != nil {
		updates["score"] = *input.Score
	}
	if input.AdminNotes != nil {
		updates["admin_notes"] = *input.AdminNotes
	}

	if len(updates) == 0 {
		ctx.JSON(iris.Map{"ok": true})
		return
	}

	// Best-effort before image for the audit trail; the update itself does
	// not require the row to exist.
	var before models.Submission
	hasBefore := storage.DB.First(&before, "id = ?", id).Error == nil

	if err := storage.DB.Model(&models.Submission{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "store_error", err.Error())
		return
	}

	if hasBefore {
		var after models.Submission
		storage.DB.First(&after, "id = ?", id)
		utils.Audit(ctx, "submission.patch", "submission", id, before, after)
	}

	ctx.JSON(iris.Map{"ok": true})
}
