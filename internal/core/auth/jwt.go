package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrNoSubject    = errors.New("token has no user id")
)

// clockSkew 容忍客户端与服务端的时钟差
const clockSkew = time.Minute

// Claims 只用来定位用户；角色、是否启用都以数据库为准
type Claims struct {
	UID  string `json:"userId"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTer HS256 签发/校验；Now 为空用 time.Now
type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (j *JWTer) clock() time.Time {
	if j.Now == nil {
		return time.Now()
	}
	return j.Now()
}

func (j *JWTer) Issue(uid, role string) (string, error) {
	iat := j.clock()
	rc := jwt.RegisteredClaims{
		Issuer:    j.Issuer,
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(j.TTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UID: uid, Role: role, RegisteredClaims: rc}).SignedString(j.Secret)
}

func (j *JWTer) parser() *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(j.clock),
	)
}

// Parse 返回的 error 可用 errors.Is 对比 jwt.ErrTokenExpired 等
func (j *JWTer) Parse(raw string) (*Claims, error) {
	var c Claims
	if _, err := j.parser().ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return j.Secret, nil }); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	if c.UID == "" {
		return nil, ErrNoSubject
	}
	return &c, nil
}

// BearerToken 取 Authorization: Bearer <token>，前缀大小写不敏感
func BearerToken(header string) (string, error) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	if tok = strings.TrimSpace(tok); tok == "" {
		return "", ErrMissingToken
	}
	return tok, nil
}
