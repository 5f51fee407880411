package domain

// Export formats exchanged between database instances by the dests CLI.
// Colleges are keyed by CollegeHash, users by their id.

type ExportedCollege struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type ExportedDecision struct {
	CollegeHash     string          `json:"college_hash"`
	CollegeName     string          `json:"college_name"`
	CollegeLocation string          `json:"college_location"`
	DecisionType    *DecisionType   `json:"decision_type"`
	AdmissionStatus AdmissionStatus `json:"admission_status"`
	LastModified    *string         `json:"last_modified"`
}

type ExportedTestScore struct {
	ExamType     ExamType `json:"exam_type"`
	ExamScore    int      `json:"exam_score"`
	LastModified *string  `json:"last_modified"`
}

type ExportedUser struct {
	Username             string              `json:"username"`
	Password             string              `json:"password"`
	FirstName            string              `json:"first_name"`
	LastName             string              `json:"last_name"`
	Email                string              `json:"email"`
	Nickname             string              `json:"nickname"`
	UseNickname          bool                `json:"use_nickname"`
	PreferredName        string              `json:"preferred_name"`
	GraduationYear       *int                `json:"graduation_year"`
	GPA                  *float64            `json:"gpa"`
	IsStudent            bool                `json:"is_student"`
	IsStaff              bool                `json:"is_staff"`
	IsSuperuser          bool                `json:"is_superuser"`
	IsBanned             bool                `json:"is_banned"`
	AcceptedTerms        bool                `json:"accepted_terms"`
	PublishData          bool                `json:"publish_data"`
	Biography            string              `json:"biography"`
	AttendingCollegeHash *string             `json:"attending_college_hash"`
	Decisions            []ExportedDecision  `json:"decisions"`
	TestScores           []ExportedTestScore `json:"test_scores"`
	LastModified         *string             `json:"last_modified"`
}

// ImportSummary reports the outcome of an import run.
type ImportSummary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

func (s ImportSummary) Processed() int {
	return s.Created + s.Updated
}
