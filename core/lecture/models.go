package lecture

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
)

// Lecture belongs to exactly one Course and is cascade-deleted with it.
// Course is hydrated on single-object fetches so that authorization
// predicates can walk up the containment chain.
type Lecture struct {
	ID          string         `json:"id"`
	CourseID    string         `json:"course_id"`
	Course      *course.Course `json:"course,omitempty"`
	Topic       string         `json:"topic"`
	Description string         `json:"description"`
	IsPublished bool           `json:"is_published"`
	CreatedAt   time.Time      `json:"created_at"` // UTC
	UpdatedAt   time.Time      `json:"updated_at"` // UTC
}

// NewLecture contains information needed to create a new Lecture.
type NewLecture struct {
	CourseID    string `json:"course_id" validate:"required,uuid4"`
	Topic       string `json:"topic" validate:"required,max=200"`
	Description string `json:"description"`
	IsPublished bool   `json:"is_published"`
}

func (nl *NewLecture) Validate(validate *validator.Validate) error {
	nl.CourseID = core.CleanString(nl.CourseID, true /* lower */)
	nl.Topic = core.CleanString(nl.Topic)
	nl.Description = core.CleanString(nl.Description)
	return validate.Struct(nl)
}

// UpdateLecture defines what information may be provided to modify an existing Lecture.
type UpdateLecture struct {
	Topic       string `json:"topic" validate:"omitempty,max=200"`
	Description string `json:"description"`
	IsPublished *bool  `json:"is_published"`
}

func (ul *UpdateLecture) Validate(orig Lecture, validate *validator.Validate) error {
	if topic := core.CleanString(ul.Topic); topic != "" {
		ul.Topic = topic
	} else {
		ul.Topic = orig.Topic
	}
	if desc := core.CleanString(ul.Description); desc != "" {
		ul.Description = desc
	} else {
		ul.Description = orig.Description
	}
	return validate.Struct(ul)
}

// QueryFilter restricts which lectures are enumerated; the scoping fields are
// set by the service from the authenticated principal.
type QueryFilter struct {
	Search   string `query:"search"`
	CourseID string `query:"course_id"`

	TeacherID string `query:"-"` // course owner or co-teacher
	StudentID string `query:"-"` // enrolled student
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CourseID = core.CleanString(qf.CourseID, true /* lower */)
}
