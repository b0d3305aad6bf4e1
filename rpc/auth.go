package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"intentengine/crypto"
)

const defaultClockSkew = 2 * time.Minute

// authenticator verifies HS256 bearer tokens whose subject is the caller's
// bech32 account address.
type authenticator struct {
	secret []byte
	issuer string
	skew   time.Duration
}

func newAuthenticator(secret []byte, issuer string) *authenticator {
	return &authenticator{secret: secret, issuer: strings.TrimSpace(issuer), skew: defaultClockSkew}
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// caller returns the authenticated caller of r.
func (a *authenticator) caller(r *http.Request) ([20]byte, *RPCError) {
	if a == nil || len(a.secret) == 0 {
		return [20]byte{}, &RPCError{Code: codeUnauthorized, Message: "RPC authentication secret not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return [20]byte{}, &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	tokenString := extractBearer(header)
	if tokenString == "" {
		return [20]byte{}, &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	addr, err := a.parse(tokenString)
	if err != nil {
		return [20]byte{}, &RPCError{Code: codeUnauthorized, Message: "invalid token", Data: err.Error()}
	}
	return addr.Raw(), nil
}

func (a *authenticator) parse(tokenString string) (crypto.Address, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.skew),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return crypto.Address{}, err
	}
	if !token.Valid {
		return crypto.Address{}, errors.New("token invalid")
	}
	addr, err := crypto.DecodePrefixed(claims.Subject, crypto.AccountPrefix)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("subject: %w", err)
	}
	if addr.IsZero() {
		return crypto.Address{}, errors.New("subject must not be the zero account")
	}
	return addr, nil
}

// IssueToken mints an HS256 token identifying caller.
func IssueToken(secret []byte, issuer string, caller crypto.Address, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("rpc: token secret required")
	}
	if ttl <= 0 {
		return "", errors.New("rpc: token ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Subject:   caller.String(),
		Issuer:    strings.TrimSpace(issuer),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
