package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Priority is the urgency tag attached to a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes s into a Priority. Unknown or empty values
// fall back to PriorityMedium.
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// MaxID is the largest task id, 2^53-1. Exports are read by JavaScript,
// which cannot represent larger integers exactly.
const MaxID int64 = 1<<53 - 1

// Task represents a single to-do item.
type Task struct {
	ID          int64      `json:"id" validate:"gt=0,lte=9007199254740991"`
	Text        string     `json:"text" validate:"nonempty"`
	Priority    Priority   `json:"priority" validate:"oneof=low medium high"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt" validate:"required"`
	CompletedAt *time.Time `json:"completedAt"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Text must contain something other than whitespace.
	_ = validate.RegisterValidation("nonempty", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Validate checks that the task has valid field values and that its
// completion timestamp agrees with its completion flag.
func (t *Task) Validate() error {
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		return fieldError(verrs[0])
	}

	if t.Completed && t.CompletedAt == nil {
		return errors.New("completedAt is required when completed is true")
	}
	if !t.Completed && t.CompletedAt != nil {
		return errors.New("completedAt must be null when completed is false")
	}

	return nil
}

func fieldError(fe validator.FieldError) error {
	switch fe.Field() {
	case "ID":
		if fe.Tag() == "lte" {
			return fmt.Errorf("id must not exceed %d", MaxID)
		}
		return errors.New("id must be a positive integer")
	case "Text":
		return errors.New("text is required")
	case "Priority":
		return errors.New("priority must be 'high', 'medium', or 'low'")
	case "CreatedAt":
		return errors.New("createdAt is required")
	default:
		return fmt.Errorf("%s failed on rule %q", fe.Field(), fe.Tag())
	}
}

// Filter names a derived view over the task collection.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
	FilterHigh      Filter = "high"
)

// ParseFilter resolves a filter name. An empty name means FilterAll and
// "high-priority" is accepted as an alias of FilterHigh.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "pending":
		return FilterPending, nil
	case "completed":
		return FilterCompleted, nil
	case "high", "high-priority":
		return FilterHigh, nil
	default:
		return "", fmt.Errorf("unknown filter %q: must be 'all', 'pending', 'completed', or 'high'", s)
	}
}

// Match reports whether t belongs to the view named by f.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterPending:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	case FilterHigh:
		return t.Priority == PriorityHigh
	default:
		return true
	}
}

// Stats summarizes the collection.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}
