package domain

import (
	"crypto/md5"
	"encoding/hex"
)

type College struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Location string `db:"location" json:"location"`
}

// Hash identifies a college across database instances, independent of its id.
func (c College) Hash() string {
	return CollegeHash(c.Name, c.Location)
}

func CollegeHash(name, location string) string {
	sum := md5.Sum([]byte(name + "|" + location))
	return hex.EncodeToString(sum[:])
}

// CollegeStats is a college annotated with decision counts for one graduation year.
type CollegeStats struct {
	College
	CountDecisions     int `db:"count_decisions" json:"count_decisions"`
	CountAttending     int `db:"count_attending" json:"count_attending"`
	CountAdmit         int `db:"count_admit" json:"count_admit"`
	CountWaitlist      int `db:"count_waitlist" json:"count_waitlist"`
	CountWaitlistAdmit int `db:"count_waitlist_admit" json:"count_waitlist_admit"`
	CountWaitlistDeny  int `db:"count_waitlist_deny" json:"count_waitlist_deny"`
	CountDefer         int `db:"count_defer" json:"count_defer"`
	CountDeferAdmit    int `db:"count_defer_admit" json:"count_defer_admit"`
	CountDeferDeny     int `db:"count_defer_deny" json:"count_defer_deny"`
	CountDeferWL       int `db:"count_defer_wl" json:"count_defer_wl"`
	CountDeferWLAdmit  int `db:"count_defer_wl_admit" json:"count_defer_wl_admit"`
	CountDeferWLDeny   int `db:"count_defer_wl_deny" json:"count_defer_wl_deny"`
	CountDeny          int `db:"count_deny" json:"count_deny"`
}

type CollegeListFilter struct {
	Search         *string
	GraduationYear int
	Limit          int
	Offset         int
}
