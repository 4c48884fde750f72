package domain

import "time"

// User represents a registered account as persisted by the user store.
type User struct {
	ID            string
	Fullname      string
	Username      string
	Email         string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL string
	RefreshToken  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RegistrationInput carries the fields submitted for a single registration attempt.
// AvatarPath and CoverImagePath are local file paths; empty means absent.
type RegistrationInput struct {
	Fullname       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// PublicUser is the projection of User that is safe to hand back to clients.
type PublicUser struct {
	ID            string    `json:"id"`
	Fullname      string    `json:"fullname"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	AvatarURL     string    `json:"avatarUrl"`
	CoverImageURL string    `json:"coverImageUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UploadResult describes an object stored in the media store.
type UploadResult struct {
	URL string
	Key string
}
