package services

import (
	"context"
	"errors"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	"github.com/lac-hong-legacy/tutor_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProfileImageSigner resolves stored image keys to client URLs.
type ProfileImageSigner interface {
	ProfileImageURL(ctx context.Context, objectName string) string
}

type UserService struct {
	appContext.DefaultService

	userRepo *repositories.UserRepository
	images   ProfileImageSigner
}

const USER_SVC = "user_svc"

func (svc UserService) Id() string {
	return USER_SVC
}

func NewUserService(db *gorm.DB, images ProfileImageSigner) *UserService {
	return &UserService{
		userRepo: repositories.NewUserRepository(db),
		images:   images,
	}
}

func (svc *UserService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *UserService) Start() error {
	svc.userRepo = repositories.NewUserRepository(svc.Service(DATABASE_SVC).(*DatabaseService).Db())
	svc.images = svc.Service(MEDIA_SVC).(*MediaService)
	return nil
}

// ==================== USER PROFILE METHODS ====================

func (svc *UserService) GetUserProfile(ctx context.Context, userID string) (*dto.UserProfileResponse, error) {
	user, err := svc.userRepo.GetUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(ErrUserNotFound, "User not found")
		}
		return nil, shared.NewInternalError(HandleDBError(err))
	}

	subjects, err := svc.userRepo.GetPendingSubjects(userID)
	if err != nil {
		return nil, shared.NewInternalError(HandleDBError(err))
	}

	imageURL := ""
	if svc.images != nil {
		imageURL = svc.images.ProfileImageURL(ctx, user.ProfileImage)
	}

	profile := toProfileResponse(user, subjects, imageURL)
	return &profile, nil
}

func (svc *UserService) UpdateUserProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*dto.UserProfileResponse, error) {
	updates := make(map[string]interface{})

	if req.Username != nil {
		updates["username"] = strings.TrimSpace(*req.Username)
	}
	if req.Grade != nil {
		updates["grade"] = *req.Grade
	}
	if req.Gender != nil {
		updates["gender"] = *req.Gender
	}
	if req.DateOfBirth != nil {
		updates["date_of_birth"] = req.DateOfBirth
	}
	if req.ParentEmail != nil {
		updates["parent_email"] = normalizeEmail(*req.ParentEmail)
	}
	if req.ParentName != nil {
		updates["parent_name"] = *req.ParentName
	}
	if req.ParentPhone != nil {
		updates["parent_phone"] = *req.ParentPhone
	}

	if len(updates) > 0 {
		if err := svc.userRepo.UpdateProfile(userID, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, shared.NewNotFoundError(ErrUserNotFound, "User not found")
			}
			return nil, shared.NewInternalError(HandleDBError(err))
		}
		log.WithFields(log.Fields{"user_id": userID, "fields": len(updates) - 1}).Debug("Profile updated")
	}

	return svc.GetUserProfile(ctx, userID)
}

// UpdatePendingSubjects replaces the list of subjects waiting for a lesson.
// Duplicates collapse onto their first position.
func (svc *UserService) UpdatePendingSubjects(ctx context.Context, userID string, req dto.UpdateSubjectsRequest) (*dto.UserProfileResponse, error) {
	seen := make(map[model.Subject]bool, len(req.Subjects))
	subjects := make([]model.Subject, 0, len(req.Subjects))
	for _, raw := range req.Subjects {
		subject := model.Subject(raw)
		if !model.IsValidSubject(raw) {
			return nil, shared.NewBadRequestError(ErrInvalidSubject, "Invalid subject: "+raw)
		}
		if seen[subject] {
			continue
		}
		seen[subject] = true
		subjects = append(subjects, subject)
	}

	if _, err := svc.userRepo.GetUser(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(ErrUserNotFound, "User not found")
		}
		return nil, shared.NewInternalError(HandleDBError(err))
	}

	if err := svc.userRepo.ReplacePendingSubjects(userID, subjects); err != nil {
		return nil, shared.NewInternalError(HandleDBError(err))
	}

	return svc.GetUserProfile(ctx, userID)
}

func toProfileResponse(user *model.User, subjects []model.Subject, imageURL string) dto.UserProfileResponse {
	pending := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		pending = append(pending, string(subject))
	}

	return dto.UserProfileResponse{
		ID:              user.ID,
		Email:           user.Email,
		Username:        user.Username,
		Grade:           user.Grade,
		Gender:          user.Gender,
		DateOfBirth:     user.DateOfBirth,
		Rank:            user.Rank,
		ParentEmail:     user.ParentEmail,
		ParentName:      user.ParentName,
		ParentPhone:     user.ParentPhone,
		ProfileImageURL: imageURL,
		PendingSubjects: pending,
		IsGoogleAccount: user.IsExternalAccount(),
		CreatedAt:       user.CreatedAt,
	}
}
