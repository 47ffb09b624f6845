// Package types defines the task priority levels
package types

import (
	"fmt"
	"strings"
)

// Priority is the scheduling class of a task
type Priority int32

const (
	// PriorityLow tasks run only when no High or Normal task is waiting
	PriorityLow Priority = iota
	// PriorityNormal is the default priority
	PriorityNormal
	// PriorityHigh tasks run first, throttled against Normal on larger pools
	PriorityHigh
)

// Priorities lists all levels from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh}

// String returns the string representation of Priority
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the defined levels
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// ParsePriority parses a priority name, case-insensitively
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, fmt.Errorf("%w: unknown priority %q", ErrInvalidPriority, s)
	}
}
