package restapi

import (
	log "log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	jwtverifier "github.com/okta/okta-jwt-verifier-golang"
)

// See oauth2 token verifier (& VueJS based token injection in Header)
//     sample using Okta: https://developer.okta.com/blog/2021/02/17/building-and-securing-a-go-and-gin-web-application

// VerifyHeaderToken wraps a handler so it only runs for requests carrying a valid bearer token.
func VerifyHeaderToken(realHandler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verify(c) {
			realHandler(c)
		}
	}
}

// Verify the bearer token in header. GRAPHKV_ENV=DEV skips verification, GRAPHKV_ENV=QA accepts
// GRAPHKV_QA_TOKEN in place of an Okta issued token.
func verify(c *gin.Context) bool {
	// Allow easy debugging on dev.
	if os.Getenv("GRAPHKV_ENV") == "DEV" {
		return true
	}

	token := c.Request.Header.Get("Authorization")
	if !strings.HasPrefix(token, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return false
	}
	token = strings.TrimPrefix(token, "Bearer ")

	// Allow easy QA, bypass Okta based OAuth2 token verification w/ simple token equality check.
	if os.Getenv("GRAPHKV_ENV") == "QA" {
		if qaToken := os.Getenv("GRAPHKV_QA_TOKEN"); qaToken != "" && token == qaToken {
			return true
		}
	}

	verifierSetup := jwtverifier.JwtVerifier{
		Issuer: "https://" + os.Getenv("OKTA_DOMAIN") + "/oauth2/default",
		ClaimsToValidate: map[string]string{
			"aud": "api://default",
			"cid": os.Getenv("OKTA_CLIENT_ID"),
		},
	}
	verifier := verifierSetup.New()
	if _, err := verifier.VerifyAccessToken(token); err != nil {
		log.Warn("bearer token verification failed", "error", err.Error())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": err.Error()})
		return false
	}
	return true
}
