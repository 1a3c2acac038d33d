package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/tutor_api/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var ErrGoogleNotConfigured = errors.New("google sign-in is not configured")

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

type GoogleIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleIdentityProvider turns an authorization code into a verified identity.
type GoogleIdentityProvider interface {
	FetchIdentity(ctx context.Context, code, redirectURI string) (*GoogleIdentity, error)
}

type GoogleAuthService struct {
	appContext.DefaultService

	config      *oauth2.Config
	userInfoURL string
}

const GOOGLE_AUTH_SVC = "google_auth_svc"

func (svc GoogleAuthService) Id() string {
	return GOOGLE_AUTH_SVC
}

func (svc *GoogleAuthService) Configure(ctx *appContext.Context) error {
	svc.userInfoURL = googleUserInfoURL
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		svc.config = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		}
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *GoogleAuthService) FetchIdentity(ctx context.Context, code, redirectURI string) (*GoogleIdentity, error) {
	if svc.config == nil {
		return nil, ErrGoogleNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	config := *svc.config
	config.RedirectURL = redirectURI

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange OAuth code: %w", err)
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(svc.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var identity GoogleIdentity
	if err := shared.JSONAPI.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("failed to parse Google user info: %w", err)
	}

	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	if identity.Email == "" || !identity.EmailVerified {
		return nil, errors.New("google account has no verified email")
	}
	return &identity, nil
}
