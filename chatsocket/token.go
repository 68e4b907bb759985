package chatsocket

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// identityClaims are tried in order when looking for the user id.
var identityClaims = []string{"userId", "user_id", "id", "sub"}

// UserIDFromToken extracts the user id from a JWT access token without
// verifying it; the server does the verification during the handshake.
func UserIDFromToken(token string) (string, error) {
	if token == "" {
		return "", NewError(ErrorUnauthorized, "empty token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", WrapError(ErrorUnauthorized, "parse token", err)
	}
	for _, key := range identityClaims {
		if id := claimString(claims[key]); id != "" {
			return id, nil
		}
	}
	return "", NewError(ErrorUnauthorized, "token carries no user id")
}

func claimString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
