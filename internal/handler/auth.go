package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lifetrack/internal/locale"
	"github.com/lifetrack/internal/logging"
)

// TrustedUserHeader 由受信任网关写入的用户 ID 头
const TrustedUserHeader = "X-User-ID"

var errMissingIdentity = errors.New("missing user identity")

// Authenticator 校验外部签发的身份。token 不在本服务签发。
type Authenticator struct {
	secret      []byte
	issuer      string
	trustHeader bool
}

// NewAuthenticator 构造 Authenticator；trustHeader 为 true 时只读取 X-User-ID
func NewAuthenticator(secret, issuer string, trustHeader bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, trustHeader: trustHeader}
}

// RequireUser 解析当前用户并写入 gin.Context，失败时返回 401
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := a.identify(c)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="lifetrack"`)
			respondError(c, http.StatusUnauthorized, locale.Pick(requestLanguage(c), "authentication required", "需要登录"))
			return
		}
		c.Set(logging.UserIDKey, userID)
		c.Next()
	}
}

func (a *Authenticator) identify(c *gin.Context) (uuid.UUID, error) {
	if a.trustHeader {
		raw := strings.TrimSpace(c.GetHeader(TrustedUserHeader))
		if raw == "" {
			return uuid.Nil, errMissingIdentity
		}
		return uuid.Parse(raw)
	}

	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return uuid.Nil, errMissingIdentity
	}
	return a.parseToken(strings.TrimSpace(token))
}

func (a *Authenticator) parseToken(raw string) (uuid.UUID, error) {
	if len(a.secret) == 0 {
		return uuid.Nil, errors.New("jwt secret not configured")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		options = append(options, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	return uuid.Parse(claims.Subject)
}

// currentUser 读取 RequireUser 写入的用户 ID
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(logging.UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
