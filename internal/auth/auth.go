package auth

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const issuer = "financebot"

// Claims are the session token claims. Phone doubles as the owner id
// everywhere in the system.
type Claims struct {
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

// Manager issues and verifies phone-login sessions.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	demoOTP string
}

// NewManager creates a session manager. The secret must be non-empty;
// demoOTP defaults to the development code when unset.
func NewManager(secret, demoOTP string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, eris.New("auth: jwt secret is required")
	}
	if demoOTP == "" {
		demoOTP = "222222"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, demoOTP: demoOTP}, nil
}

// SendOTP records an OTP request for the phone. Actual SMS delivery is an
// external concern; in this deployment the static development code is
// always accepted.
func (m *Manager) SendOTP(phone string) error {
	if phone == "" {
		return eris.New("auth: phone is required")
	}
	zap.L().Info("otp requested", zap.String("phone", phone))
	return nil
}

// VerifyOTP checks the submitted code.
func (m *Manager) VerifyOTP(phone, otp string) bool {
	if phone == "" || otp == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(otp), []byte(m.demoOTP)) == 1
}

// IssueSession signs a session token for the phone.
func (m *Manager) IssueSession(now time.Time, phone string) (string, error) {
	claims := Claims{
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign session token")
	}
	return signed, nil
}

// VerifySession parses and validates a session token.
func (m *Manager) VerifySession(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30*time.Second), // clock skew tolerance
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, eris.Wrap(err, "auth: verify session token")
	}

	if claims.Phone == "" {
		return Claims{}, eris.New("auth: phone missing from token")
	}
	return claims, nil
}
