package auth

import (
	"strconv"
	"time"

	"ecommerce-backend/internal/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the payload of both token kinds. Refresh tokens carry no role.
type Claims struct {
	Role entity.Role `json:"role,omitempty"`
	Type TokenType   `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject back into the numeric user id.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenManager signs and verifies HS256 tokens with one shared secret.
type TokenManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

func (m *TokenManager) IssueAccessToken(userID int64, role entity.Role) (string, error) {
	return m.sign(userID, role, AccessToken, m.accessExpiry)
}

func (m *TokenManager) IssueRefreshToken(userID int64) (string, error) {
	return m.sign(userID, "", RefreshToken, m.refreshExpiry)
}

func (m *TokenManager) sign(userID int64, role entity.Role, kind TokenType, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &Claims{
		Role: role,
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := tkn.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return t, nil
}

// Verify checks signature, expiry and kind. Failures are ErrTokenExpired or wrap ErrTokenInvalid.
func (m *TokenManager) Verify(token string, kind TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(ErrTokenInvalid, err.Error())
	}

	if claims.Type != kind {
		return nil, errors.Wrapf(ErrTokenInvalid, "expected a %s token", kind)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, errors.Wrap(ErrTokenInvalid, "malformed subject")
	}
	return claims, nil
}
