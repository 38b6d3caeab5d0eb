package tokensvc

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/user"
)

const (
	Audience      = "credentials"
	SigningMethod = "HS256"
)

var (
	ErrInvalidToken = errors.New("invalid or expired jwt")

	NowFunc = time.Now // mockable
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username      string   `json:"preferred_username,omitempty"`
	Email         string   `json:"email,omitempty"`
	Administrator bool     `json:"administrator,omitempty"`
	Scopes        []string `json:"scopes,omitempty"`
}

// HasScope reports whether the token grants scope.
func (c Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Issuer signs HS256 tokens with the app secret key.
type Issuer struct {
	key        []byte
	issuer     string
	expiration time.Duration
}

var _ credentials.TokenIssuer = (*Issuer)(nil)

func NewIssuer(conf *core.Config) *Issuer {
	return &Issuer{
		key:        []byte(conf.SecretKey),
		issuer:     conf.AppName,
		expiration: conf.Credentials.TokenExpiration,
	}
}

// Key is the signing key, shared with the JWT middleware.
func (iss *Issuer) Key() []byte {
	return iss.key
}

func (iss *Issuer) ClaimsFor(subject user.User, scopes []string) *Claims {
	now := NowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    iss.issuer,
			Subject:   subject.StringID(),
			Audience:  Audience,
			ExpiresAt: now.Add(iss.expiration).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username:      subject.Username,
		Email:         subject.Email,
		Administrator: subject.IsService,
		Scopes:        scopes,
	}
}

// IssueServiceToken issues the token the service user presents to the Credentials service.
func (iss *Issuer) IssueServiceToken(ctx context.Context, subject user.User, scopes []string) (string, error) {
	return iss.Sign(iss.ClaimsFor(subject, scopes))
}

// Sign generates a signed JWT token string representing the Claims.
func (iss *Issuer) Sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(SigningMethod), claims)
	ss, err := token.SignedString(iss.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Parse verifies a token string and returns its claims.
func (iss *Issuer) Parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != SigningMethod {
			return nil, ErrInvalidToken
		}
		return iss.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyAudience(Audience, true) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
