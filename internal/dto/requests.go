package dto

// RegisterRequest represents a registration request. Blank fields are
// reported by the session with a user-facing message, so they are not
// rejected at binding.
type RegisterRequest struct {
	Email       string `json:"email" binding:"max=254"`
	Password    string `json:"password" binding:"max=128"`
	DisplayName string `json:"displayName" binding:"max=50"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"max=254"`
	Password string `json:"password" binding:"max=128"`
}

// UpdateProfileRequest is a partial profile update; absent fields are kept
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" binding:"omitempty,max=50"`
	Bio         *string `json:"bio" binding:"omitempty,max=300"`
	Username    *string `json:"username"`
}

// UpdateSettingsRequest is a partial settings update
type UpdateSettingsRequest struct {
	NotificationsEnabled *bool   `json:"notificationsEnabled"`
	DarkModeEnabled      *bool   `json:"darkModeEnabled"`
	EmailNotifications   *bool   `json:"emailNotifications"`
	QuizDifficulty       *string `json:"quizDifficulty"`
	Language             *string `json:"language" binding:"omitempty,min=2,max=10"`
}

// CreatePostRequest publishes a community post
type CreatePostRequest struct {
	Content string `json:"content" binding:"required"`
}
