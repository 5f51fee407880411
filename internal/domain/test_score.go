package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ExamType string

const (
	ExamSATTotal ExamType = "SAT_TOTAL"
	ExamSATEBRW  ExamType = "SAT_EBRW"
	ExamSATMath  ExamType = "SAT_MATH"
	ExamACTComp  ExamType = "ACT_COMP"
	ExamACTEngl  ExamType = "ACT_ENGL"
	ExamACTMath  ExamType = "ACT_MATH"
	ExamACTRead  ExamType = "ACT_READ"
	ExamACTSci   ExamType = "ACT_SCI"
	ExamAP       ExamType = "AP"
	ExamIB       ExamType = "IB"
)

type scoreRange struct {
	min, max, step int
}

var examRanges = map[ExamType]scoreRange{
	ExamSATTotal: {400, 1600, 10},
	ExamSATEBRW:  {200, 800, 10},
	ExamSATMath:  {200, 800, 10},
	ExamACTComp:  {1, 36, 1},
	ExamACTEngl:  {1, 36, 1},
	ExamACTMath:  {1, 36, 1},
	ExamACTRead:  {1, 36, 1},
	ExamACTSci:   {1, 36, 1},
	ExamAP:       {1, 5, 1},
	ExamIB:       {1, 7, 1},
}

// ValidateScore checks the score against the exam's scale.
func (e ExamType) ValidateScore(score int) error {
	r, ok := examRanges[e]
	if !ok {
		return fmt.Errorf("unknown exam type %q", e)
	}
	if score < r.min || score > r.max {
		return fmt.Errorf("score must be between %d and %d", r.min, r.max)
	}
	if (score-r.min)%r.step != 0 {
		return fmt.Errorf("score must be a multiple of %d", r.step)
	}
	return nil
}

type TestScore struct {
	ID           int64     `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	ExamType     ExamType  `db:"exam_type" json:"exam_type"`
	ExamScore    int       `db:"exam_score" json:"exam_score"`
	LastModified time.Time `db:"last_modified" json:"last_modified"`
}
