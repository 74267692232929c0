package devserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/eshaffer321/retail-go/internal/types"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"

	userKey = "devserver.user"
)

type claims struct {
	jwt.RegisteredClaims
	Type    string `json:"token_type"`
	UserID  int64  `json:"user_id"`
	Version int    `json:"ver"`
}

// issue signs a token of the given type for username
func (s *Server) issue(kind string, u types.User) (string, error) {
	s.mu.RLock()
	version, ttl := s.accessVersion, s.accessTTL
	if kind == tokenRefresh {
		version, ttl = s.refreshVersion, s.refreshTTL
	}
	s.mu.RUnlock()

	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type:    kind,
		UserID:  u.ID,
		Version: version,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// verify parses a token and checks its type and revocation version
func (s *Server) verify(kind, token string) (types.User, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return types.User{}, err
	}
	if c.Type != kind {
		return types.User{}, errors.Errorf("expected %s token, got %q", kind, c.Type)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	version := s.accessVersion
	if kind == tokenRefresh {
		version = s.refreshVersion
	}
	if c.Version != version {
		return types.User{}, errors.New("token revoked")
	}

	acct, ok := s.accounts[c.Subject]
	if !ok {
		return types.User{}, errors.New("unknown user")
	}
	return acct.user, nil
}

func (s *Server) login(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password are required"})
		return
	}

	s.mu.RLock()
	acct, ok := s.accounts[body.Username]
	s.mu.RUnlock()
	if !ok || acct.password != body.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}

	access, err := s.issue(tokenAccess, acct.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to issue token"})
		return
	}
	refresh, err := s.issue(tokenRefresh, acct.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": acct.user, "access": access, "refresh": refresh})
}

func (s *Server) refresh(c *gin.Context) {
	s.mu.Lock()
	s.refreshCalls++
	s.mu.Unlock()

	var body struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": []string{"This field is required."}})
		return
	}

	u, err := s.verify(tokenRefresh, body.Refresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	access, err := s.issue(tokenAccess, u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, c.MustGet(userKey))
}

// requireAccess rejects requests without a valid bearer access token
func (s *Server) requireAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}

		u, err := s.verify(tokenAccess, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type", "code": "token_not_valid"})
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}
