package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/roboticeyes/worldtobase/event"
)

const (
	// AuthorizationKey is the key for getting the HTTP header authorization
	AuthorizationKey = "authorization"

	// KeySubject is the context key of the authenticated token subject
	KeySubject = "Subject"
)

// Claims is the metadata expected in a bridge token
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.StandardClaims
}

// ValidateToken returns a middleware which rejects every request without a
// bearer token signed with key (HS256).
func ValidateToken(key []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader(AuthorizationKey)
		if tokenString == "" {
			log.Error("Missing authentication token in header")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		split := strings.SplitN(tokenString, " ", 2)
		if len(split) != 2 || strings.ToLower(split[0]) != "bearer" {
			log.Error("Missing bearer keyword in token")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		token, err := jwt.ParseWithClaims(split[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return key, nil
		})
		if err != nil {
			log.Error(err)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Set(KeySubject, claims.Subject)
		if claims.ExpiresAt != 0 {
			log.WithFields(event.Fields{
				"subject": claims.Subject,
			}).Debugf("Token is valid. Expires in %v", time.Until(time.Unix(claims.ExpiresAt, 0)))
		}
		c.Next()
	}
}

// NewToken signs a token for subject, valid for ttl. A zero ttl never expires.
func NewToken(key []byte, subject string, ttl time.Duration) (string, error) {
	claims := Claims{StandardClaims: jwt.StandardClaims{
		Subject:  subject,
		IssuedAt: time.Now().Unix(),
	}}
	if ttl > 0 {
		claims.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
