package repository

import "errors"

var (
	// ErrAssessmentNotFound indicates no assessment is stored under the id
	ErrAssessmentNotFound = errors.New("assessment not found")

	// ErrInvalidAssessment indicates an assessment without an id
	ErrInvalidAssessment = errors.New("assessment must have an id")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
