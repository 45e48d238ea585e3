package session

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/user"
)

var (
	SigningMethod = jwt.SigningMethodHS256

	ErrInvalidToken = errors.New("token is invalid or expired")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

// UserID returns the id carried in the subject claim.
func (c Claims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer struct {
	Issuer string
	Secret []byte
	TTL    time.Duration
}

func NewTokenIssuer(issuer, secret string, ttl time.Duration) TokenIssuer {
	return TokenIssuer{Issuer: issuer, Secret: []byte(secret), TTL: ttl}
}

func (ti TokenIssuer) claims(usr user.User, now time.Time) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.Issuer,
			Subject:   strconv.Itoa(usr.ID),
			ExpiresAt: now.Add(ti.TTL).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Email:    usr.Email,
		IsAdmin:  usr.IsAdmin,
	}
}

// Issue generates a signed JWT representing usr, valid for TTL from now.
func (ti TokenIssuer) Issue(usr user.User, now time.Time) (Credential, error) {
	claims := ti.claims(usr, now)
	token := jwt.NewWithClaims(SigningMethod, claims)

	ss, err := token.SignedString(ti.Secret)
	if err != nil {
		return Credential{}, errors.Wrap(err, "signing token")
	}
	return Credential{Token: ss, ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC()}, nil
}

// Parse verifies the signature of a token issued by Issue, and its expiry against core.NowFunc.
func (ti TokenIssuer) Parse(token string) (*Claims, error) {
	claims := new(Claims)
	parser := &jwt.Parser{SkipClaimsValidation: true}
	tkn, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != SigningMethod.Alg() {
			return nil, ErrInvalidToken
		}
		return ti.Secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(core.NowFunc().Unix(), true) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
