package dto

import "time"

// ==================== USER PROFILE DTOs ====================

type UserProfileResponse struct {
	ID              string     `json:"_id"`
	Email           string     `json:"email"`
	Username        string     `json:"username"`
	Grade           string     `json:"grade,omitempty"`
	Gender          string     `json:"gender,omitempty"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	Rank            int        `json:"rank"`
	ParentEmail     string     `json:"parentEmail,omitempty"`
	ParentName      string     `json:"parentName,omitempty"`
	ParentPhone     string     `json:"parentPhone,omitempty"`
	ProfileImageURL string     `json:"profileImageUrl,omitempty"`
	PendingSubjects []string   `json:"pendingSubjects"`
	IsGoogleAccount bool       `json:"isGoogleAccount"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type UpdateProfileRequest struct {
	Username    *string    `json:"username" validate:"omitempty,min=2,max=50"`
	Grade       *string    `json:"grade" validate:"omitempty,max=20"`
	Gender      *string    `json:"gender" validate:"omitempty,oneof=male female other"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	ParentEmail *string    `json:"parentEmail" validate:"omitempty,email"`
	ParentName  *string    `json:"parentName" validate:"omitempty,max=100"`
	ParentPhone *string    `json:"parentPhone" validate:"omitempty,max=30"`
}

func (u *UpdateProfileRequest) Validate() error {
	return GetValidator().Struct(u)
}

type UpdateSubjectsRequest struct {
	Subjects []string `json:"subjects" validate:"dive,subject"`
}

func (u *UpdateSubjectsRequest) Validate() error {
	return GetValidator().Struct(u)
}

type ProfileImageResponse struct {
	ObjectKey string `json:"objectKey"`
	URL       string `json:"url"`
	FileSize  int64  `json:"fileSize"`
}

// ==================== LEADERBOARD DTOs ====================

type LeaderboardResponse struct {
	CurrentUser *LeaderboardUserResponse  `json:"currentUser,omitempty"`
	TopUsers    []LeaderboardUserResponse `json:"topUsers"`
}

type LeaderboardUserResponse struct {
	UserID           string `json:"_id"`
	Username         string `json:"username"`
	Score            int    `json:"score"`
	LessonsCompleted int    `json:"lessonsCompleted"`
	Rank             int    `json:"rank"`
}
