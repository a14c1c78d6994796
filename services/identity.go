package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// IdentityService talks to the external identity gateway. The gateway owns the
// passwordless login flow end to end; this service only exchanges the one-time
// code a finished login hands back and verifies what the gateway returns.
type IdentityService struct{}

func NewIdentityService() *IdentityService {
	return &IdentityService{}
}

// Identity is the verified result of a code exchange.
type Identity struct {
	Subject string
	Email   string
}

// ExchangeCode trades a one-time login code for a verified identity. The
// gateway responds with a signed identity token; the signature is checked
// against the gateway's published JWKS before any claim is trusted.
func (is *IdentityService) ExchangeCode(code string) (*Identity, error) {
	endpoint := os.Getenv("IDENTITY_ENDPOINT")
	if endpoint == "" {
		return nil, errors.New("IDENTITY_ENDPOINT is not configured")
	}

	payload, _ := json.Marshal(map[string]string{"code": code})
	res, httpErr := http.Post(endpoint+"/token?grant_type=one_time_code", "application/json", bytes.NewReader(payload))
	if httpErr != nil {
		return nil, httpErr
	}
	defer res.Body.Close()

	body, bodyErr := io.ReadAll(res.Body)
	if bodyErr != nil {
		return nil, bodyErr
	}

	if res.StatusCode != http.StatusOK {
		var gatewayErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if err := json.Unmarshal(body, &gatewayErr); err == nil && gatewayErr.ErrorDescription != "" {
			return nil, errors.New(gatewayErr.ErrorDescription)
		}
		return nil, fmt.Errorf("identity gateway returned status %d", res.StatusCode)
	}

	var tokenRes struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenRes); err != nil {
		return nil, err
	}
	if tokenRes.AccessToken == "" {
		return nil, errors.New("identity gateway returned no token")
	}

	return is.verifyIdentityToken(endpoint, tokenRes.AccessToken)
}

func (is *IdentityService) verifyIdentityToken(endpoint, identityToken string) (*Identity, error) {
	res, httpErr := http.Get(endpoint + "/.well-known/jwks.json")
	if httpErr != nil {
		return nil, httpErr
	}
	defer res.Body.Close()

	body, bodyErr := io.ReadAll(res.Body)
	if bodyErr != nil {
		return nil, bodyErr
	}

	jwks, jwksErr := keyfunc.NewJSON(body)
	if jwksErr != nil {
		return nil, jwksErr
	}

	// Keyfunc selects the key matching the token's kid and returns its public key.
	token, tokenErr := jwt.Parse(identityToken, jwks.Keyfunc)
	if tokenErr != nil {
		return nil, tokenErr
	}
	if !token.Valid {
		return nil, errors.New("invalid identity token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected identity token claims")
	}

	subject := fmt.Sprint(claims["sub"])
	email := fmt.Sprint(claims["email"])
	if subject == "" || subject == "<nil>" {
		return nil, errors.New("identity token has no subject")
	}
	if email == "<nil>" {
		email = ""
	}

	log.Printf("identity exchange succeeded for subject %s", subject)
	return &Identity{Subject: subject, Email: email}, nil
}
