package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/enums"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "catchy-market",
		ExpirationMinutes: minutes,
	}
}

func signRaw(t *testing.T, cfg config.JWTConfig, claims AccessTokenClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)
	return signed
}

func freshClaims(issuer string, role enums.Role) AccessTokenClaims {
	return AccessTokenClaims{
		UserID: uuid.New(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Role: enums.RoleSeller, JTI: "jti-1"})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, enums.RoleSeller, claims.Role)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestParseAccessTokenNormalizesLegacyRoles(t *testing.T) {
	cfg := testJWTConfig(10)
	cases := map[string]enums.Role{
		"merchant": enums.RoleSeller,
		"delivery": enums.RoleShipping,
		"user":     enums.RoleBuyer,
		"":         enums.RoleBuyer,
		"ADMIN":    enums.RoleAdmin,
	}
	for raw, want := range cases {
		parsed, err := ParseAccessToken(cfg, signRaw(t, cfg, freshClaims(cfg.Issuer, enums.Role(raw))))
		require.NoError(t, err, raw)
		assert.Equal(t, want, parsed.Role, raw)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	cfg := testJWTConfig(10)
	valid, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	require.NoError(t, err)

	noUser := freshClaims(cfg.Issuer, enums.RoleBuyer)
	noUser.UserID = uuid.Nil

	cases := map[string]string{
		"unknown role":    signRaw(t, cfg, freshClaims(cfg.Issuer, "superuser")),
		"bad signature":   valid + "x",
		"foreign issuer":  signRaw(t, cfg, freshClaims("someone-else", enums.RoleBuyer)),
		"missing user id": signRaw(t, cfg, noUser),
	}
	for name, token := range cases {
		_, err := ParseAccessToken(cfg, token)
		assert.Error(t, err, name)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, freshClaims(cfg.Issuer, enums.RoleAdmin)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, none)
	assert.Error(t, err, "alg none")

	_, err = ParseAccessToken(config.JWTConfig{}, valid)
	assert.ErrorIs(t, err, errNoSecret)
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleShipping})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	other := cfg
	other.Issuer = "other"
	_, err = ParseAccessTokenAllowExpired(other, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestMintAccessTokenValidates(t *testing.T) {
	cfg := testJWTConfig(5)
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "merchant"})
	assert.Error(t, err, "alias roles are not minted")

	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.RoleBuyer})
	assert.ErrorIs(t, err, errNoMintUser)

	_, err = MintAccessToken(testJWTConfig(0), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	assert.ErrorIs(t, err, errBadTTL)

	noIssuer := cfg
	noIssuer.Issuer = ""
	_, err = MintAccessToken(noIssuer, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	assert.ErrorIs(t, err, errNoIssuer)
}
