package handlers

import (
	"context"
	"mime/multipart"

	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/model"
)

type AuthServiceInterface interface {
	Register(req dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(req dto.LoginRequest) (*dto.LoginResponse, error)
	GoogleLogin(ctx context.Context, req dto.GoogleLoginRequest) (*dto.LoginResponse, error)
	Logout(userID, refreshToken string) error
	RefreshToken(req dto.RefreshTokenRequest) (*dto.TokenPair, error)
	DeleteUser(callerID string, req dto.DeleteUserRequest) error
}

type UserServiceInterface interface {
	GetUserProfile(ctx context.Context, userID string) (*dto.UserProfileResponse, error)
	UpdateUserProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*dto.UserProfileResponse, error)
	UpdatePendingSubjects(ctx context.Context, userID string, req dto.UpdateSubjectsRequest) (*dto.UserProfileResponse, error)
}

type MediaServiceInterface interface {
	UploadProfileImage(ctx context.Context, userID string, file *multipart.FileHeader) (*dto.ProfileImageResponse, error)
}

type LessonServiceInterface interface {
	StartLesson(userID string, subject model.Subject, lessonID string) (*dto.StartLessonResponse, bool, error)
	GetLesson(userID, lessonID string) (*model.Lesson, error)
	ListLessons(userID string) ([]dto.LessonSummary, error)
	FinishLesson(userID, lessonID string) (*dto.LessonSummary, error)
	Chat(ctx context.Context, userID, lessonID, message string) (*dto.ChatResponse, error)
	LogQuestion(userID, lessonID, expression, answer string) ([]model.QuestionLog, error)
	LogAnswer(userID, lessonID, text string) ([]model.QuestionLog, error)
	LogBotResponse(userID, lessonID, text string) ([]model.QuestionLog, error)
	IsOver(userID, lessonID string) (*dto.IsOverResponse, error)
	Analyze(ctx context.Context, userID, lessonID, parentEmail, subject string) (*dto.AnalyzeResponse, error)
}

type EmailServiceInterface interface {
	SendUserMail(ctx context.Context, userID string, req dto.SendMailRequest) (*model.EmailRecord, error)
	ListUserMail(userID string) ([]model.EmailRecord, error)
}

type LeaderboardServiceInterface interface {
	Top(limit int, currentUserID string) (*dto.LeaderboardResponse, error)
}
