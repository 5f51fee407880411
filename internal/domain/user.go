package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	Username            string    `db:"username" json:"username"`
	Email               string    `db:"email" json:"email"`
	FirstName           string    `db:"first_name" json:"first_name"`
	LastName            string    `db:"last_name" json:"last_name"`
	Nickname            string    `db:"nickname" json:"nickname"`
	UseNickname         bool      `db:"use_nickname" json:"use_nickname"`
	PreferredName       string    `db:"preferred_name" json:"preferred_name"`
	PasswordHash        []byte    `db:"password_hash" json:"-"`
	PasswordSalt        []byte    `db:"password_salt" json:"-"`
	UseLegacyHashes     bool      `db:"use_legacy_hashes" json:"-"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	IsStudent           bool      `db:"is_student" json:"is_student"`
	IsStaff             bool      `db:"is_staff" json:"is_staff"`
	IsSuperuser         bool      `db:"is_superuser" json:"is_superuser"`
	IsBanned            bool      `db:"is_banned" json:"is_banned"`
	AcceptedTerms       bool      `db:"accepted_terms" json:"accepted_terms"`
	GraduationYear      *int      `db:"graduation_year" json:"graduation_year,omitempty"`
	GPA                 *float64  `db:"gpa" json:"gpa,omitempty"`
	PublishData         bool      `db:"publish_data" json:"publish_data"`
	Biography           string    `db:"biography" json:"biography"`
	AttendingDecisionID *int64    `db:"attending_decision_id" json:"attending_decision_id,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName is the name shown across the site: the nickname when the user
// opted into it, the first name otherwise.
func (u *User) DisplayName() string {
	if u.UseNickname && strings.TrimSpace(u.Nickname) != "" {
		return u.Nickname
	}
	return u.FirstName
}

// RefreshPreferredName recomputes the stored preferred name. Call before every save.
func (u *User) RefreshPreferredName() {
	u.PreferredName = u.DisplayName()
}

func (u *User) IsSenior(now time.Time) bool {
	if u.GraduationYear == nil || *u.GraduationYear == 0 {
		return false
	}
	return *u.GraduationYear == AcademicYear(now)
}

func (u *User) CanUpdateProfile(now time.Time) bool {
	if u.GraduationYear == nil || *u.GraduationYear == 0 {
		return false
	}
	return *u.GraduationYear <= AcademicYear(now)
}

// CanBrowse reports whether the account may see destination data.
func (u *User) CanBrowse() bool {
	return u.AcceptedTerms && !u.IsBanned
}

func (u *User) IsAdmin() bool {
	return u.IsSuperuser && u.IsStaff
}
