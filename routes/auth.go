package routes

import (
	"net/url"
	"os"

	"resume-review-server/models"
	"resume-review-server/services"
	"resume-review-server/utils"

	"github.com/kataras/iris/v12"
)

var identityService = services.NewIdentityService()

// AuthCallback handles GET /auth/callback?code=...&next=...
//
// The identity gateway redirects here after a finished passwordless login.
// The one-time code is exchanged for a verified identity, the profile row is
// ensured, a session is issued, and the browser is sent on to `next` (or a
// role-based default).
func AuthCallback(ctx iris.Context) {
	base := appBaseURL(ctx)

	code := ctx.URLParam("code")
	if code == "" {
		ctx.Redirect(base + "/login?error=missing_code")
		return
	}

	identity, exchangeErr := identityService.ExchangeCode(code)
	if exchangeErr != nil {
		ctx.Redirect(base + "/login?error=" + url.QueryEscape(exchangeErr.Error()))
		return
	}

	profile, profileErr := EnsureProfile(identity)
	if profileErr != nil {
		ctx.Redirect(base + "/login?error=" + url.QueryEscape(profileErr.Error()))
		return
	}

	tokenPair, tokenErr := utils.CreateTokenPair(profile.ID)
	if tokenErr != nil {
		ctx.Redirect(base + "/login?error=session_failed")
		return
	}

	ctx.SetCookieKV(utils.SessionCookieName, string(tokenPair.AccessToken),
		iris.CookieHTTPOnly(true), iris.CookiePath("/"))

	next := ctx.URLParam("next")
	if next == "" {
		if profile.Role == models.RoleAdmin {
			next = "/admin"
		} else {
			next = "/dashboard"
		}
	}
	ctx.Redirect(base + next)
}

// appBaseURL is the redirect target root: APP_BASE_URL when configured,
// otherwise the requesting browser's own origin.
func appBaseURL(ctx iris.Context) string {
	if base := os.Getenv("APP_BASE_URL"); base != "" {
		return base
	}
	scheme := "http"
	if ctx.Request().TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + ctx.Host()
}
