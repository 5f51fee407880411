package domain

import (
	"testing"
	"time"
)

func TestAcademicYear(t *testing.T) {
	cases := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2025, time.July, 31, 23, 0, 0, 0, time.UTC), 2025},
		{time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), 2026},
		{time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), 2026},
	}
	for _, tc := range cases {
		if got := AcademicYear(tc.now); got != tc.want {
			t.Fatalf("AcademicYear(%s) = %d, want %d", tc.now.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestUserSeniorAndProfileWindow(t *testing.T) {
	now := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	senior := 2026
	alumni := 2024
	junior := 2027

	if u := (User{GraduationYear: &senior}); !u.IsSenior(now) || !u.CanUpdateProfile(now) {
		t.Fatalf("expected class of %d to be seniors who can update", senior)
	}
	if u := (User{GraduationYear: &alumni}); u.IsSenior(now) || !u.CanUpdateProfile(now) {
		t.Fatalf("expected alumni to update but not be seniors")
	}
	if u := (User{GraduationYear: &junior}); u.CanUpdateProfile(now) {
		t.Fatalf("expected juniors to be locked out of profile updates")
	}
	if u := (User{}); u.IsSenior(now) || u.CanUpdateProfile(now) {
		t.Fatalf("expected user without graduation year to be neither")
	}
}

func TestPreferredName(t *testing.T) {
	u := User{FirstName: "Alice", Nickname: "Al"}
	u.RefreshPreferredName()
	if u.PreferredName != "Alice" {
		t.Fatalf("expected first name without opt-in, got %q", u.PreferredName)
	}
	u.UseNickname = true
	u.RefreshPreferredName()
	if u.PreferredName != "Al" {
		t.Fatalf("expected nickname, got %q", u.PreferredName)
	}
	u.Nickname = "  "
	u.RefreshPreferredName()
	if u.PreferredName != "Alice" {
		t.Fatalf("expected blank nickname to fall back, got %q", u.PreferredName)
	}
}

func TestCollegeHashAndScores(t *testing.T) {
	c := College{Name: "MIT", Location: "Cambridge, MA"}
	if c.Hash() != CollegeHash("MIT", "Cambridge, MA") || len(c.Hash()) != 32 {
		t.Fatalf("unexpected college hash %q", c.Hash())
	}
	if err := ExamSATTotal.ValidateScore(1550); err != nil {
		t.Fatalf("expected 1550 to be valid: %v", err)
	}
	if err := ExamSATTotal.ValidateScore(1555); err == nil {
		t.Fatalf("expected 1555 to be rejected")
	}
	if err := ExamAP.ValidateScore(6); err == nil {
		t.Fatalf("expected AP 6 to be rejected")
	}
	if err := ExamType("GRE").ValidateScore(300); err == nil {
		t.Fatalf("expected unknown exam to be rejected")
	}
	if !AdmissionDeferWLAdmit.Admitted() || AdmissionDeny.Admitted() {
		t.Fatalf("unexpected admitted classification")
	}
}
