package routes

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"resume-review-server/models"
	"resume-review-server/storage"
	"resume-review-server/utils"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
)

const maxUploadBytes = 10 << 20 // 10 MiB

type submissionListItem struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	Status       string    `json:"status"`
	Score        *float64  `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
}

// GET /api/submissions — the caller's own submissions, newest first.
func ListMySubmissions(ctx iris.Context) {
	profileID := ctx.Values().GetString("profileID")

	var items []submissionListItem
	if err := storage.DB.Model(&models.Submission{}).
		Select("id, original_name, status, score, created_at").
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "store_error", err.Error())
		return
	}

	ctx.JSON(iris.Map{"submissions": items})
}

// POST /api/submissions — multipart upload of a single PDF.
//
// Validation order: file present, MIME exactly application/pdf, size within
// the cap. Only then is anything written: the binary goes to the object store
// under a key scoped to the caller, a 7-day signed URL is requested (the raw
// key is stored if signing fails), and the row is inserted with status
// pending. A failed insert deletes the just-uploaded object so no orphan is
// left behind.
func CreateSubmission(ctx iris.Context) {
	profileID := ctx.Values().GetString("profileID")

	ctx.SetMaxRequestBodySize(maxUploadBytes + 1<<20) // form overhead headroom

	file, header, fileErr := ctx.FormFile("file")
	if fileErr != nil || header == nil {
		// Bodies over the request cap die inside multipart parsing; an
		// oversized upload must not masquerade as a missing file.
		if ctx.GetContentLength() > maxUploadBytes {
			utils.JSONError(ctx, http.StatusBadRequest, "file_too_large", "file exceeds the 10 MiB limit")
			return
		}
		utils.JSONError(ctx, http.StatusBadRequest, "file_required", "a file is required")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType != "application/pdf" {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_type", "only PDF files are accepted")
		return
	}

	if header.Size > maxUploadBytes {
		utils.JSONError(ctx, http.StatusBadRequest, "file_too_large", "file exceeds the 10 MiB limit")
		return
	}

	data, readErr := io.ReadAll(file)
	if readErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	objectKey := fmt.Sprintf("resumes/%s/%s.pdf", profileID, uuid.NewString())

	if uploadErr := storage.UploadObject(objectKey, mimeType, data); uploadErr != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "upload_failed", uploadErr.Error())
		return
	}

	fileURL, signErr := storage.CreateSignedURL(objectKey, storage.SignedURLTTL)
	if signErr != nil {
		log.Printf("signing failed for %s, storing raw key: %v", objectKey, signErr)
		fileURL = objectKey
	}

	submission := models.Submission{
		ProfileID:    profileID,
		OriginalName: header.Filename,
		FileURL:      fileURL,
		ObjectKey:    objectKey,
		MimeType:     mimeType,
		SizeBytes:    header.Size,
		Status:       models.StatusPending,
	}
	if insertErr := storage.DB.Create(&submission).Error; insertErr != nil {
		if deleteErr := storage.DeleteObject(objectKey); deleteErr != nil {
			log.Printf("failed to delete orphaned object %s: %v", objectKey, deleteErr)
		}
		utils.JSONError(ctx, http.StatusBadRequest, "store_error", insertErr.Error())
		return
	}

	ctx.JSON(iris.Map{"id": submission.ID})
}
