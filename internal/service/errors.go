package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account locked")
	ErrSessionInvalid       = errors.New("session invalid or expired")
	ErrResetNotRequired     = errors.New("password reset not required")
	ErrPasswordUpdateFailed = errors.New("unable to update password, please try again")
	ErrLoginRestricted      = errors.New("login is currently restricted to administrators")
	ErrNotStudent           = errors.New("this site is only available to students")
	ErrAccountBanned        = errors.New("this account has been banned")
	ErrTermsRequired        = errors.New("you must accept the terms of service")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrProfileLocked        = errors.New("profile can no longer be edited")
	ErrDuplicateDecision    = errors.New("a decision for this college already exists")
	ErrValidation           = errors.New("validation failed")
)

// ValidationError carries per-field problems back to the caller.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	if len(parts) == 0 {
		return e.Message
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, problem string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], problem)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
