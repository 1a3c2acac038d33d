package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	"github.com/lac-hong-legacy/tutor_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	MaxProfileImageSize = 5 * 1024 * 1024
	profileImageURLTTL  = 24 * time.Hour
)

var (
	ErrInvalidImageType = errors.New("invalid image type")
	ErrImageTooLarge    = errors.New("image too large")
)

var profileImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ObjectStore is the subset of object storage used for profile images.
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) error
	GetFileURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	DeleteFile(ctx context.Context, objectName string) error
}

type MediaService struct {
	appContext.DefaultService
	userRepo *repositories.UserRepository
	store    ObjectStore
}

const MEDIA_SVC = "media_svc"

func (svc MediaService) Id() string {
	return MEDIA_SVC
}

func NewMediaService(db *gorm.DB, store ObjectStore) *MediaService {
	return &MediaService{
		userRepo: repositories.NewUserRepository(db),
		store:    store,
	}
}

func (svc *MediaService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *MediaService) Start() error {
	svc.userRepo = repositories.NewUserRepository(svc.Service(DATABASE_SVC).(*DatabaseService).Db())
	svc.store = svc.Service(MINIO_SVC).(*MinIOService)
	return nil
}

// UploadProfileImage stores the image under profiles/<userID>/ and points the
// user at it. The previous image is removed on a best-effort basis.
func (svc *MediaService) UploadProfileImage(ctx context.Context, userID string, file *multipart.FileHeader) (*dto.ProfileImageResponse, error) {
	if file == nil {
		return nil, shared.NewBadRequestError(ErrInvalidImageType, "Image file is required")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, ok := profileImageTypes[ext]
	if !ok {
		return nil, shared.NewBadRequestError(ErrInvalidImageType, "Invalid image file format. Supported: JPG, PNG, WEBP")
	}
	if file.Size > MaxProfileImageSize {
		return nil, shared.NewBadRequestError(ErrImageTooLarge, "Image file too large. Maximum size: 5MB")
	}

	user, err := svc.userRepo.GetUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(ErrUserNotFound, "User not found")
		}
		return nil, shared.NewInternalError(HandleDBError(err))
	}

	src, err := file.Open()
	if err != nil {
		return nil, shared.NewInternalError(err)
	}
	defer src.Close()

	objectName := fmt.Sprintf("profiles/%s/%s%s", userID, uuid.NewString(), ext)
	if err := svc.store.UploadFile(ctx, objectName, src, file.Size, contentType); err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			return nil, shared.NewServerConfigError(err, "Image storage is not available")
		}
		return nil, shared.NewUpstreamError(err, "Failed to upload file to storage")
	}

	if err := svc.userRepo.UpdateProfileImage(userID, objectName); err != nil {
		if delErr := svc.store.DeleteFile(ctx, objectName); delErr != nil {
			log.WithError(delErr).WithField("object", objectName).Warn("Failed to clean up uploaded image")
		}
		return nil, shared.NewInternalError(HandleDBError(err))
	}

	if user.ProfileImage != "" && user.ProfileImage != objectName {
		if err := svc.store.DeleteFile(ctx, user.ProfileImage); err != nil {
			log.WithError(err).WithField("object", user.ProfileImage).Warn("Failed to delete previous profile image")
		}
	}

	log.WithFields(log.Fields{"user_id": userID, "object": objectName, "size": file.Size}).Info("Profile image uploaded")

	return &dto.ProfileImageResponse{
		ObjectKey: objectName,
		URL:       svc.ProfileImageURL(ctx, objectName),
		FileSize:  file.Size,
	}, nil
}

// ProfileImageURL returns a presigned URL, or "" when there is no image or
// storage cannot sign one.
func (svc *MediaService) ProfileImageURL(ctx context.Context, objectName string) string {
	if objectName == "" || svc.store == nil {
		return ""
	}
	url, err := svc.store.GetFileURL(ctx, objectName, profileImageURLTTL)
	if err != nil {
		log.WithError(err).WithField("object", objectName).Debug("Failed to generate presigned URL")
		return ""
	}
	return url
}
