package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lac-hong-legacy/tutor_api/dto"
)

var (
	ErrMissingSecret = errors.New("jwt secret is not configured")
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
)

type JWTService struct {
	context.DefaultService

	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	accessSecret         string
	refreshSecret        string
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	Nonce  int64  `json:"nonce"`
	jwt.RegisteredClaims
}

const JWT_SVC = "jwt_svc"

const tokenIssuer = "tutor_api"

func (svc JWTService) Id() string {
	return JWT_SVC
}

// NewJWTService builds a token service without the service container.
func NewJWTService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		AccessTokenDuration:  accessTTL,
		RefreshTokenDuration: refreshTTL,
		accessSecret:         accessSecret,
		refreshSecret:        refreshSecret,
	}
}

func (svc *JWTService) Configure(ctx *context.Context) error {
	svc.AccessTokenDuration = parseDuration(os.Getenv("JWT_ACCESS_TTL"), 15*time.Minute)
	svc.RefreshTokenDuration = parseDuration(os.Getenv("JWT_REFRESH_TTL"), 720*time.Hour)
	svc.accessSecret = os.Getenv("JWT_ACCESS_SECRET")
	svc.refreshSecret = os.Getenv("JWT_REFRESH_SECRET")
	return svc.DefaultService.Configure(ctx)
}

func (svc *JWTService) Start() error {
	return nil
}

// GenerateTokenPair issues a fresh access and refresh token. Each carries its
// own random nonce so two pairs for the same user never collide.
func (svc *JWTService) GenerateTokenPair(userID string) (*dto.TokenPair, error) {
	if svc.accessSecret == "" || svc.refreshSecret == "" {
		return nil, ErrMissingSecret
	}

	accessToken, err := svc.sign(userID, svc.accessSecret, svc.AccessTokenDuration)
	if err != nil {
		return nil, err
	}

	refreshToken, err := svc.sign(userID, svc.refreshSecret, svc.RefreshTokenDuration)
	if err != nil {
		return nil, err
	}

	return &dto.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(svc.AccessTokenDuration.Seconds()),
	}, nil
}

// RefreshExpiry is the expiry a refresh token issued now would carry.
func (svc *JWTService) RefreshExpiry() time.Time {
	return time.Now().Add(svc.RefreshTokenDuration)
}

func (svc *JWTService) VerifyAccessToken(token string) (*CustomClaims, error) {
	return svc.verify(token, svc.accessSecret)
}

func (svc *JWTService) VerifyRefreshToken(token string) (*CustomClaims, error) {
	return svc.verify(token, svc.refreshSecret)
}

// VerifyJWTToken validates an access token and returns its user id.
func (svc *JWTService) VerifyJWTToken(jwtToken string) (string, error) {
	claims, err := svc.VerifyAccessToken(jwtToken)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (svc *JWTService) verify(tokenString, secret string) (*CustomClaims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (svc *JWTService) sign(userID, secret string, ttl time.Duration) (string, error) {
	nonce, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		Nonce:  nonce.Int64(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}

	return tokenString, nil
}

func (svc *JWTService) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimSpace(authHeader[7:])
	if token == "" {
		return "", errors.New("authorization token is empty")
	}
	return token, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
