package utils

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

func JSONError(ctx iris.Context, status int, code, message string) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"error": code, "message": message})
}

// HandleValidationErrors turns a failed ReadJSON into a 400. Validator errors
// (from the app-level validator) keep their field detail in the message.
func HandleValidationErrors(err error, ctx iris.Context) {
	if _, ok := err.(validator.ValidationErrors); ok {
		JSONError(ctx, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	JSONError(ctx, http.StatusBadRequest, "invalid_payload", "invalid request body")
}

func CreateInternalServerError(ctx iris.Context) {
	JSONError(ctx, http.StatusInternalServerError, "server_error", "internal server error")
}
