package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/enums"
)

var signingMethod = jwt.SigningMethodHS256

var (
	errNoSecret   = errors.New("jwt secret is required")
	errNoIssuer   = errors.New("jwt issuer is required")
	errBadTTL     = errors.New("jwt expiration minutes must be positive")
	errNoUserID   = errors.New("token missing user_id")
	errNoMintUser = errors.New("user id is required")
)

// AccessTokenPayload is the input for minting.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims is the body of every access token this service issues.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// MintAccessToken signs an HS256 token valid for cfg.ExpirationMinutes from
// now. A blank JTI gets a fresh UUID.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errNoIssuer
	case cfg.ExpirationMinutes <= 0:
		return "", errBadTTL
	case payload.UserID == uuid.Nil:
		return "", errNoMintUser
	case !payload.Role.IsValid():
		return "", errors.New("invalid role " + string(payload.Role))
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	token := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(cfg.Secret))
}

// ParseAccessToken verifies signature, issuer and expiry. Legacy role names
// are mapped to their current value.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parse(cfg, raw)
}

// ParseAccessTokenAllowExpired skips claim validation so refresh can read the
// jti of an expired token. Signature and issuer are still checked.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	claims, err := parse(cfg, raw, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if claims.Issuer != cfg.Issuer {
		return nil, jwt.ErrTokenInvalidIssuer
	}
	return claims, nil
}

func parse(cfg config.JWTConfig, raw string, extra ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}, extra...)

	claims := &AccessTokenClaims{}
	secret := []byte(cfg.Secret)
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return secret, nil }, opts...); err != nil {
		return nil, err
	}

	role, err := enums.NormalizeTokenRole(string(claims.Role))
	if err != nil {
		return nil, err
	}
	claims.Role = role
	if claims.UserID == uuid.Nil {
		return nil, errNoUserID
	}
	return claims, nil
}
