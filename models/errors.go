package models

import "errors"

// Sentinel errors returned by model operations. Controllers translate them
// into HTTP statuses.
var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStaleAppointment    = errors.New("appointment was modified by another request")
	ErrInvalidAppointment  = errors.New("invalid appointment")
	ErrSlotTaken           = errors.New("time slot not available")
	ErrInvalidMembership   = errors.New("invalid membership")
	ErrInvalidResetCode    = errors.New("invalid verification code")
	ErrResetCodeExpired    = errors.New("verification code expired")
	ErrResetRequestInvalid = errors.New("invalid password reset request")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAlreadyLiked        = errors.New("already liked")
	ErrNotLiked            = errors.New("not liked")
)
