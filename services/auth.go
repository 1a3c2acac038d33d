package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/lac-hong-legacy/tutor_api/shared"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailTaken           = errors.New("email already registered")
	ErrRefreshTokenMissing  = errors.New("refresh token is required")
	ErrRefreshTokenUnknown  = errors.New("refresh token is not active")
	ErrDeleteOtherUser      = errors.New("cannot delete another user")
	ErrUserNotFound         = errors.New("user not found")
	ErrGoogleExchangeFailed = errors.New("google sign-in failed")
)

const invalidCredentialsMessage = "Invalid Email Or Password"

// ResultRemover drops a user's leaderboard entry when the account goes away.
type ResultRemover interface {
	RemoveUser(userID string) error
}

type AuthService struct {
	appContext.DefaultService

	userRepo *repositories.UserRepository
	jwtSvc   *JWTService
	results  ResultRemover
	google   GoogleIdentityProvider
}

const AUTH_SVC = "auth_svc"

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func NewAuthService(db *gorm.DB, jwtSvc *JWTService, results ResultRemover, google GoogleIdentityProvider) *AuthService {
	return &AuthService{
		userRepo: repositories.NewUserRepository(db),
		jwtSvc:   jwtSvc,
		results:  results,
		google:   google,
	}
}

func (svc *AuthService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthService) Start() error {
	svc.userRepo = repositories.NewUserRepository(svc.Service(DATABASE_SVC).(*DatabaseService).Db())
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.results = svc.Service(LEADERBOARD_SVC).(*LeaderboardService)
	svc.google = svc.Service(GOOGLE_AUTH_SVC).(*GoogleAuthService)
	return nil
}

func (svc *AuthService) Register(req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := normalizeEmail(req.Email)

	exists, err := svc.userRepo.EmailExists(email)
	if err != nil {
		return nil, shared.NewInternalError(HandleDBError(err))
	}
	if exists {
		return nil, shared.NewBadRequestError(ErrEmailTaken, "Email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewInternalError(err)
	}

	user, err := svc.userRepo.CreateUser(&model.User{
		Email:    email,
		Username: strings.TrimSpace(req.Username),
		Password: string(hashed),
	})
	if err != nil {
		return nil, shared.NewInternalError(HandleDBError(err))
	}

	tokens, err := svc.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": user.ID}).Info("User registered")

	return &dto.RegisterResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Login answers unknown emails and wrong passwords identically.
func (svc *AuthService) Login(req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := svc.userRepo.GetUserByEmail(normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewBadRequestError(ErrInvalidCredentials, invalidCredentialsMessage)
		}
		return nil, shared.NewInternalError(HandleDBError(err))
	}

	if user.IsExternalAccount() {
		return nil, shared.NewBadRequestError(ErrInvalidCredentials, invalidCredentialsMessage)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, shared.NewBadRequestError(ErrInvalidCredentials, invalidCredentialsMessage)
	}

	return svc.loginResponse(user)
}

func (svc *AuthService) GoogleLogin(ctx context.Context, req dto.GoogleLoginRequest) (*dto.LoginResponse, error) {
	identity, err := svc.google.FetchIdentity(ctx, req.Code, req.RedirectURI)
	if err != nil {
		if errors.Is(err, ErrGoogleNotConfigured) {
			return nil, shared.NewServerConfigError(err, "Google sign-in is not configured")
		}
		log.WithError(err).Warn("Google identity exchange failed")
		return nil, shared.NewUnauthorizedError(ErrGoogleExchangeFailed, "Google sign-in failed")
	}

	user, err := svc.userRepo.GetUserByEmail(identity.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewInternalError(HandleDBError(err))
		}
		username := identity.Name
		if username == "" {
			username = strings.Split(identity.Email, "@")[0]
		}
		user, err = svc.userRepo.CreateUser(&model.User{
			Email:    identity.Email,
			Username: username,
			Password: model.ExternalAuthPassword,
		})
		if err != nil {
			return nil, shared.NewInternalError(HandleDBError(err))
		}
		log.WithFields(log.Fields{"user_id": user.ID}).Info("User registered with Google")
	}

	return svc.loginResponse(user)
}

// Logout removes one refresh token from the caller's active set.
func (svc *AuthService) Logout(userID, refreshToken string) error {
	if refreshToken == "" {
		return shared.NewBadRequestError(ErrRefreshTokenMissing, "Refresh token is required")
	}

	claims, err := svc.jwtSvc.VerifyRefreshToken(refreshToken)
	if err != nil || claims.UserID != userID {
		return shared.NewForbiddenError(ErrInvalidToken, "Invalid refresh token")
	}

	removed, err := svc.userRepo.RemoveRefreshToken(userID, hashToken(refreshToken))
	if err != nil {
		return shared.NewInternalError(HandleDBError(err))
	}
	if !removed {
		return shared.NewNotFoundError(ErrRefreshTokenUnknown, "Refresh token not found")
	}
	return nil
}

// RefreshToken rotates a refresh token. Presenting a validly signed token
// that is no longer in the active set revokes every session of that user.
func (svc *AuthService) RefreshToken(req dto.RefreshTokenRequest) (*dto.TokenPair, error) {
	claims, err := svc.jwtSvc.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, shared.NewForbiddenError(err, "Invalid refresh token")
	}

	oldHash := hashToken(req.RefreshToken)
	active, err := svc.userRepo.HasRefreshToken(claims.UserID, oldHash)
	if err != nil {
		return nil, shared.NewInternalError(HandleDBError(err))
	}
	if !active {
		if err := svc.userRepo.ClearRefreshTokens(claims.UserID); err != nil {
			return nil, shared.NewInternalError(HandleDBError(err))
		}
		return nil, shared.NewBadRequestError(ErrRefreshTokenUnknown, "Refresh token is not active")
	}

	tokens, err := svc.jwtSvc.GenerateTokenPair(claims.UserID)
	if err != nil {
		return nil, shared.NewServerConfigError(err, "Token signing is not configured")
	}

	replaced, err := svc.userRepo.ReplaceRefreshToken(claims.UserID, oldHash, hashToken(tokens.RefreshToken), svc.jwtSvc.RefreshExpiry())
	if err != nil {
		return nil, shared.NewInternalError(HandleDBError(err))
	}
	if !replaced {
		// lost a race with a concurrent refresh of the same token
		return nil, shared.NewBadRequestError(ErrRefreshTokenUnknown, "Refresh token is not active")
	}
	return tokens, nil
}

func (svc *AuthService) DeleteUser(callerID string, req dto.DeleteUserRequest) error {
	if req.UserID != callerID {
		return shared.NewForbiddenError(ErrDeleteOtherUser, "Cannot delete another user")
	}

	user, err := svc.userRepo.GetUser(req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.NewNotFoundError(ErrUserNotFound, "User not found")
		}
		return shared.NewInternalError(HandleDBError(err))
	}

	if !user.IsExternalAccount() {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			return shared.NewBadRequestError(ErrInvalidCredentials, "Invalid password")
		}
	}

	if err := svc.userRepo.DeleteUser(user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.NewNotFoundError(ErrUserNotFound, "User not found")
		}
		return shared.NewInternalError(HandleDBError(err))
	}

	if svc.results != nil {
		if err := svc.results.RemoveUser(user.ID); err != nil {
			log.WithError(err).WithField("user_id", user.ID).Warn("Failed to remove leaderboard entry")
		}
	}

	log.WithFields(log.Fields{"user_id": user.ID}).Info("User deleted")
	return nil
}

func (svc *AuthService) loginResponse(user *model.User) (*dto.LoginResponse, error) {
	tokens, err := svc.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}

	if err := svc.userRepo.UpdateLastLogin(user.ID); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}

	subjects, err := svc.userRepo.GetPendingSubjects(user.ID)
	if err != nil {
		return nil, shared.NewInternalError(HandleDBError(err))
	}

	return &dto.LoginResponse{
		UserProfileResponse: toProfileResponse(user, subjects, ""),
		AccessToken:         tokens.AccessToken,
		RefreshToken:        tokens.RefreshToken,
	}, nil
}

// issueTokens signs a new pair and adds the refresh token to the active set.
func (svc *AuthService) issueTokens(userID string) (*dto.TokenPair, error) {
	tokens, err := svc.jwtSvc.GenerateTokenPair(userID)
	if err != nil {
		return nil, shared.NewServerConfigError(err, "Token signing is not configured")
	}
	if err := svc.userRepo.AddRefreshToken(userID, hashToken(tokens.RefreshToken), svc.jwtSvc.RefreshExpiry()); err != nil {
		return nil, shared.NewInternalError(HandleDBError(err))
	}
	return tokens, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
