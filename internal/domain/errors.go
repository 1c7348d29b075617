package domain

import "errors"

var (
	ErrNotFound           = errors.New("job not found")
	ErrExpired            = errors.New("job has expired")
	ErrInvalidURL         = errors.New("invalid source URL")
	ErrVerificationFailed = errors.New("ad verification failed")
	ErrInvalidTransition  = errors.New("invalid status transition")
)
