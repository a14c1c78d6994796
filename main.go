package main

import (
	"os"

	"resume-review-server/routes"
	"resume-review-server/storage"
	"resume-review-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeObjectStore()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS for the browser dashboard
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	// Browser callers carry the access token in the session cookie set by the
	// auth callback; API clients use the Authorization header.
	accessTokenVerifier.Extractors = append(accessTokenVerifier.Extractors, func(ctx iris.Context) string {
		return ctx.GetCookie(utils.SessionCookieName)
	})
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}

		return tokenInput.RefreshToken
	})

	app.Get("/auth/callback", routes.AuthCallback)

	auth := app.Party("/api/auth")
	{
		auth.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
	}

	user := app.Party("/api/user", accessTokenVerifierMiddleware, utils.SubjectFromTokenMiddleware)
	{
		user.Get("/me", routes.GetMe)
	}

	submissions := app.Party("/api/submissions", accessTokenVerifierMiddleware, utils.SubjectFromTokenMiddleware)
	{
		submissions.Get("/", routes.ListMySubmissions)
		submissions.Post("/", routes.CreateSubmission)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/submissions", routes.AdminListSubmissions)
		admin.Patch("/submissions/{id:string}", routes.AdminPatchSubmission)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	app.Listen(":" + port)
}
