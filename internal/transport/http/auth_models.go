package http

import (
	"time"

	"github.com/tjdests/tjdests/internal/domain"
)

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid credentials"`
}

// ValidationErrorResponse lists field-level problems of a rejected form.
type ValidationErrorResponse struct {
	Error  string              `json:"error" example:"invalid password"`
	Fields map[string][]string `json:"fields"`
}

// AuthUser models the sanitized user representation returned by auth endpoints.
type AuthUser struct {
	ID             string   `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Username       string   `json:"username" example:"alice"`
	Email          string   `json:"email,omitempty" example:"alice@example.com"`
	FirstName      string   `json:"first_name" example:"Alice"`
	LastName       string   `json:"last_name" example:"Anderson"`
	PreferredName  string   `json:"preferred_name" example:"Alice"`
	GraduationYear *int     `json:"graduation_year,omitempty" example:"2026"`
	GPA            *float64 `json:"gpa,omitempty" example:"3.875"`
	IsStudent      bool     `json:"is_student" example:"true"`
	IsStaff        bool     `json:"is_staff" example:"false"`
	IsSuperuser    bool     `json:"is_superuser" example:"false"`
	AcceptedTerms  bool     `json:"accepted_terms" example:"true"`
	PublishData    bool     `json:"publish_data" example:"false"`
}

func newAuthUser(u *domain.User) AuthUser {
	return AuthUser{
		ID:             u.ID.String(),
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		PreferredName:  u.PreferredName,
		GraduationYear: u.GraduationYear,
		GPA:            u.GPA,
		IsStudent:      u.IsStudent,
		IsStaff:        u.IsStaff,
		IsSuperuser:    u.IsSuperuser,
		AcceptedTerms:  u.AcceptedTerms,
		PublishData:    u.PublishData,
	}
}

// AuthTokenResponse is returned by endpoints that open a session.
type AuthTokenResponse struct {
	Token              string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt          string   `json:"expires_at" example:"2026-01-02T09:30:00Z"`
	NeedsPasswordReset bool     `json:"needs_password_reset" example:"false"`
	Next               string   `json:"next,omitempty" example:"/api/v1/auth/force-password-reset"`
	User               AuthUser `json:"user"`
}

func newAuthTokenResponse(token string, expiresAt time.Time, needsReset bool, user *domain.User) AuthTokenResponse {
	resp := AuthTokenResponse{
		Token:              token,
		ExpiresAt:          expiresAt.UTC().Format(time.RFC3339),
		NeedsPasswordReset: needsReset,
		User:               newAuthUser(user),
	}
	if needsReset {
		resp.Next = ForcePasswordResetPath
	}
	return resp
}

// AuthUserResponse wraps a user object.
type AuthUserResponse struct {
	User AuthUser `json:"user"`
}

// SuccessResponse denotes a simple success flag.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// LoginRequest carries username/password login fields.
type LoginRequest struct {
	Username string `json:"username" form:"username" example:"alice"`
	Password string `json:"password" form:"password" example:"OldPass!1"`
}

// ForcePasswordResetRequest carries the replacement password and its confirmation.
type ForcePasswordResetRequest struct {
	NewPassword1 string `json:"new_password1" form:"new_password1" example:"NewPass!2"`
	NewPassword2 string `json:"new_password2" form:"new_password2" example:"NewPass!2"`
}

// ForcePasswordResetStatus describes the pending reset to the client.
type ForcePasswordResetStatus struct {
	NeedsPasswordReset bool   `json:"needs_password_reset" example:"true"`
	Username           string `json:"username" example:"alice"`
	MinLength          int    `json:"min_length" example:"8"`
}

// AcceptTermsRequest records terms acceptance with the first chosen password.
type AcceptTermsRequest struct {
	AcceptTOS    bool   `json:"accept_tos" form:"accept_tos" example:"true"`
	NewPassword1 string `json:"new_password1" form:"new_password1" example:"NewPass!2"`
	NewPassword2 string `json:"new_password2" form:"new_password2" example:"NewPass!2"`
}

// AcceptTermsResponse confirms the account accepted the terms.
type AcceptTermsResponse struct {
	Accepted bool `json:"accepted" example:"true"`
}
