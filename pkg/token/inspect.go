package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

// Kind of access token issued by the server.
type Kind string

const (
	KindOpaque Kind = "opaque"
	KindJWT    Kind = "jwt"
)

// Info describes an access token. Claims are read without verifying the
// signature; they are for display only.
type Info struct {
	Kind      Kind
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// Inspect classifies an access token. The server issues UUID tokens by default
// and JWTs when the application is configured for them.
func Inspect(accessToken string) (Info, error) {
	if _, err := uuid.Parse(accessToken); err == nil && !strings.Contains(accessToken, ".") {
		return Info{Kind: KindOpaque}, nil
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return Info{}, errors.Wrap(err, errors.ErrCodeUnexpectedResponse, "access token is neither a UUID nor a JWT")
	}

	info := Info{Kind: KindJWT}
	info.Subject, _ = claims.GetSubject()
	info.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}
