package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Claims struct {
	jwt.RegisteredClaims

	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
	Role    Role   `json:"role,omitempty"`
}

// Identity is the authenticated caller. ID is the token subject.
type Identity struct {
	ID      string
	Name    string
	Contact string
	Role    Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// VerifyToken verifies an HS256 bearer token and returns the caller identity.
// Tokens without a role are treated as regular users.
func VerifyToken(tokenString, secret, audience string, now time.Time) (*Identity, error) {
	if tokenString == "" {
		return nil, errors.New("missing token")
	}
	if secret == "" {
		return nil, errors.New("missing signing secret")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	parser := jwt.NewParser(opts...)

	claims := &Claims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return nil, errors.New("missing subject in token")
	}

	role := claims.Role
	switch role {
	case RoleAdmin, RoleUser:
	case "":
		role = RoleUser
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	return &Identity{
		ID:      sub,
		Name:    claims.Name,
		Contact: claims.Contact,
		Role:    role,
	}, nil
}

// IssueToken signs a token for id valid for ttl from now. Used by dev tooling and tests.
func IssueToken(id Identity, secret, audience string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:    id.Name,
		Contact: id.Contact,
		Role:    id.Role,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
