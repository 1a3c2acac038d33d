package model

import "time"

// ExternalAuthPassword is stored in place of a hash for accounts created
// through Google sign-in. It can never match a bcrypt comparison.
const ExternalAuthPassword = "EXTERNAL_AUTH"

type User struct {
	ID           string     `json:"_id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	Username     string     `json:"username" gorm:"not null"`
	Password     string     `json:"-" gorm:"not null"`
	Grade        string     `json:"grade"`
	Gender       string     `json:"gender"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
	Rank         int        `json:"rank" gorm:"default:0"`
	ParentEmail  string     `json:"parentEmail"`
	ParentName   string     `json:"parentName"`
	ParentPhone  string     `json:"parentPhone"`
	ProfileImage string     `json:"profileImage"`
	LastLogin    *time.Time `json:"lastLogin"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	RefreshTokens   []RefreshToken   `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	PendingSubjects []PendingSubject `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) IsExternalAccount() bool {
	return u.Password == ExternalAuthPassword
}

// RefreshToken is one member of a user's active refresh-token set. Only the
// SHA-256 of the signed token is persisted.
type RefreshToken struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"index;not null"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

type PendingSubject struct {
	ID        string  `gorm:"primaryKey"`
	UserID    string  `gorm:"index;not null"`
	Subject   Subject `gorm:"not null"`
	Position  int     `gorm:"not null"`
	CreatedAt time.Time
}
