package ports

import "context"

// Repositories groups the repositories bound to one database handle, either
// the pool or an open transaction.
type Repositories struct {
	Users             UserRepository
	LegacyCredentials LegacyCredentialRepository
	Sessions          SessionRepository
	PasswordResets    PasswordResetRepository
	Colleges          CollegeRepository
	Decisions         DecisionRepository
	TestScores        TestScoreRepository
	Destinations      DestinationRepository
}

// Transactor runs fn inside a database transaction. fn's error rolls the
// transaction back; a nil return commits it.
type Transactor interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
