package domain

import (
	"strings"
	"time"
)

const maxProjectNameLength = 200

// Project is the top-level grouping for documents, sets, and indexes.
type Project struct {
	ID          string
	Name        string
	Description string
	Settings    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateProject checks required fields before persistence.
func ValidateProject(p *Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return NewDomainError(ErrCodeValidation, "project name is required")
	}
	if len(p.Name) > maxProjectNameLength {
		return NewDomainError(ErrCodeValidation, "project name is too long")
	}
	return nil
}
