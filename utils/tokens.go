package utils

import (
	"context"
	"os"
	"time"

	"resume-review-server/models"
	"resume-review-server/storage"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

var bgContext = context.Background()

// SessionCookieName carries the access token for browser callers; API clients
// may send the same token as a bearer header instead.
const SessionCookieName = "rr_session"

func CreateTokenPair(profileID string) (*jwt.TokenPair, error) {
	accessTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 24*time.Hour)
	refreshTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("REFRESH_TOKEN_SECRET"), 365*24*time.Hour)

	refreshClaims := jwt.Claims{Subject: profileID}

	// Load role for embedding into access token
	var p models.Profile
	role := models.RoleUser
	if err := storage.DB.Select("id, role").First(&p, "id = ?", profileID).Error; err == nil && p.Role != "" {
		role = p.Role
	}

	accessTokenClaims := AccessToken{
		Subject: profileID,
		Role:    role,
	}

	accessToken, err := accessTokenSigner.Sign(accessTokenClaims)
	if err != nil {
		return nil, err
	}

	refreshToken, err := refreshTokenSigner.Sign(refreshClaims)
	if err != nil {
		return nil, err
	}

	var tokenPair jwt.TokenPair
	tokenPair.AccessToken = accessToken
	tokenPair.RefreshToken = refreshToken

	storage.Redis.Set(bgContext, string(refreshToken), "true", 365*24*time.Hour+5*time.Minute)

	return &tokenPair, nil
}

// RefreshToken rotates a refresh token: the presented token must still be
// registered in Redis, is consumed, and a fresh pair is issued.
func RefreshToken(ctx iris.Context) {
	token := jwt.GetVerifiedToken(ctx)
	tokenStr := string(token.Token)
	validToken, tokenErr := storage.Redis.Get(bgContext, tokenStr).Result()

	if tokenErr != nil {
		JSONError(ctx, iris.StatusNotFound, "not_found", "unknown refresh token")
		return
	}

	if validToken != "true" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	storage.Redis.Del(bgContext, tokenStr)

	tokenPair, tokenPairErr := CreateTokenPair(token.StandardClaims.Subject)
	if tokenPairErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

type AccessToken struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
