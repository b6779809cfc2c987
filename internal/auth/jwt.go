// internal/auth/jwt.go
package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aliasgame/server/internal/apperr"
)

var (
	jwtSecret []byte

	// TOKEN_EXPIRE_TIME_SEC indicates how many seconds until JWT expiration (0 => never).
	TOKEN_EXPIRE_TIME_SEC int
)

// parseTokenExpireTime reads the TOKEN_EXPIRE_TIME env var and sets TOKEN_EXPIRE_TIME_SEC accordingly.
func parseTokenExpireTime() {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		TOKEN_EXPIRE_TIME_SEC = 0
	} else {
		d, err := time.ParseDuration(duration)
		if err != nil {
			fmt.Printf("failed to parse token expire time: %v\n", err)
			os.Exit(1)
		}
		TOKEN_EXPIRE_TIME_SEC = int(d.Seconds())
	}
}

// Init loads the signing secret from JWT_SECRET and the token expiration.
func Init() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("JWT_SECRET is not set")
		os.Exit(1)
	}
	jwtSecret = []byte(secret)
	parseTokenExpireTime()
}

// InitWithSecret sets the signing secret directly. Used by tests.
func InitWithSecret(secret string) {
	jwtSecret = []byte(secret)
	parseTokenExpireTime()
}

// Claims carried by an access token.
type Claims struct {
	UserID   string
	TwitchID string
	Username string
}

// CreateJWT mints a signed HS256 token for the user.
func CreateJWT(c Claims) (string, error) {
	claims := jwt.MapClaims{
		"sub":       c.UserID,
		"twitch_id": c.TwitchID,
		"username":  c.Username,
		"iat":       time.Now().Unix(),
	}
	if TOKEN_EXPIRE_TIME_SEC > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TOKEN_EXPIRE_TIME_SEC) * time.Second).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// AuthenticateJWT verifies a token string and returns its claims.
func AuthenticateJWT(tokenString string) (Claims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return Claims{}, apperr.Unauthenticated("invalid token: %v", err)
	}
	if !t.Valid {
		return Claims{}, apperr.Unauthenticated("invalid token")
	}

	mc, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperr.Unauthenticated("invalid token claims")
	}
	sub, ok := mc["sub"].(string)
	if !ok || sub == "" {
		return Claims{}, apperr.Unauthenticated("token is missing the subject claim")
	}

	c := Claims{UserID: sub}
	if v, ok := mc["twitch_id"].(string); ok {
		c.TwitchID = v
	}
	if v, ok := mc["username"].(string); ok {
		c.Username = v
	}
	return c, nil
}
