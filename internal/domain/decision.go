package domain

import (
	"time"

	"github.com/google/uuid"
)

type DecisionType string

const (
	DecisionTypeEarlyDecision         DecisionType = "ED"
	DecisionTypeEarlyDecision2        DecisionType = "ED2"
	DecisionTypeEarlyAction           DecisionType = "EA"
	DecisionTypeEarlyAction2          DecisionType = "EA2"
	DecisionTypeRestrictedEarlyAction DecisionType = "REA"
	DecisionTypeRegularDecision       DecisionType = "RD"
	DecisionTypePriority              DecisionType = "PRI"
	DecisionTypeRolling               DecisionType = "ROLL"
)

var DecisionTypes = []DecisionType{
	DecisionTypeEarlyDecision,
	DecisionTypeEarlyDecision2,
	DecisionTypeEarlyAction,
	DecisionTypeEarlyAction2,
	DecisionTypeRestrictedEarlyAction,
	DecisionTypeRegularDecision,
	DecisionTypePriority,
	DecisionTypeRolling,
}

type AdmissionStatus string

const (
	AdmissionAdmit         AdmissionStatus = "ADMIT"
	AdmissionWaitlist      AdmissionStatus = "WAITLIST"
	AdmissionWaitlistAdmit AdmissionStatus = "WAITLIST_ADMIT"
	AdmissionWaitlistDeny  AdmissionStatus = "WAITLIST_DENY"
	AdmissionDefer         AdmissionStatus = "DEFER"
	AdmissionDeferAdmit    AdmissionStatus = "DEFER_ADMIT"
	AdmissionDeferDeny     AdmissionStatus = "DEFER_DENY"
	AdmissionDeferWL       AdmissionStatus = "DEFER_WL"
	AdmissionDeferWLAdmit  AdmissionStatus = "DEFER_WL_A"
	AdmissionDeferWLDeny   AdmissionStatus = "DEFER_WL_D"
	AdmissionDeny          AdmissionStatus = "DENY"
)

var AdmissionStatuses = []AdmissionStatus{
	AdmissionAdmit,
	AdmissionWaitlist,
	AdmissionWaitlistAdmit,
	AdmissionWaitlistDeny,
	AdmissionDefer,
	AdmissionDeferAdmit,
	AdmissionDeferDeny,
	AdmissionDeferWL,
	AdmissionDeferWLAdmit,
	AdmissionDeferWLDeny,
	AdmissionDeny,
}

func (t DecisionType) Valid() bool {
	for _, v := range DecisionTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (s AdmissionStatus) Valid() bool {
	for _, v := range AdmissionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Admitted reports whether the status ends in an offer of admission.
func (s AdmissionStatus) Admitted() bool {
	switch s {
	case AdmissionAdmit, AdmissionWaitlistAdmit, AdmissionDeferAdmit, AdmissionDeferWLAdmit:
		return true
	}
	return false
}

type Decision struct {
	ID              int64           `db:"id" json:"id"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	CollegeID       int64           `db:"college_id" json:"college_id"`
	DecisionType    *DecisionType   `db:"decision_type" json:"decision_type,omitempty"`
	AdmissionStatus AdmissionStatus `db:"admission_status" json:"admission_status"`
	LastModified    time.Time       `db:"last_modified" json:"last_modified"`
	College         College         `db:"college" json:"college"`
}
