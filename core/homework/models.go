package homework

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
)

// Homework belongs to exactly one Lecture and is cascade-deleted with it.
// Lecture (with its course) is hydrated on single-object fetches.
type Homework struct {
	ID          string           `json:"id"`
	LectureID   string           `json:"lecture_id"`
	Lecture     *lecture.Lecture `json:"lecture,omitempty"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	DueDate     time.Time        `json:"due_date"` // UTC
	MaxPoints   int              `json:"max_points"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   time.Time        `json:"created_at"` // UTC
	UpdatedAt   time.Time        `json:"updated_at"` // UTC
}

func (hw Homework) IsOverdue() bool { return time.Now().UTC().After(hw.DueDate) }

// Submission is unique per (Homework, student). IsLate is computed once at
// submission time and never recomputed.
type Submission struct {
	ID          string     `json:"id"`
	HomeworkID  string     `json:"homework_id"`
	Homework    *Homework  `json:"homework,omitempty"`
	StudentID   string     `json:"student_id"`
	Student     *user.User `json:"student,omitempty"`
	Content     string     `json:"content"`
	IsLate      bool       `json:"is_late"`
	Grade       *Grade     `json:"grade,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"`   // UTC
}

// Status reports the submission state machine position: submitted or graded.
func (s Submission) Status() string {
	if s.Grade != nil {
		return StatusGraded
	}
	return StatusSubmitted
}

const (
	StatusNotSubmitted = "not_submitted"
	StatusSubmitted    = "submitted"
	StatusGraded       = "graded"
)

// Grade is 1:1 with a Submission; created once by a course teacher,
// thereafter only updatable.
type Grade struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	Points       int       `json:"points"`
	Comments     string    `json:"comments,omitempty"`
	GradedByID   string    `json:"graded_by_id"`
	GradedAt     time.Time `json:"graded_at"`  // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (g Grade) Letter() string {
	switch {
	case g.Points >= 90:
		return "A"
	case g.Points >= 80:
		return "B"
	case g.Points >= 70:
		return "C"
	case g.Points >= 60:
		return "D"
	default:
		return "F"
	}
}

func (g Grade) MarshalJSON() ([]byte, error) {
	type alias Grade
	return json.Marshal(struct {
		alias
		LetterGrade string `json:"letter_grade"`
	}{alias(g), g.Letter()})
}

// NewHomework contains information needed to create a new Homework.
type NewHomework struct {
	LectureID   string    `json:"lecture_id" validate:"required,uuid4"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxPoints   int       `json:"max_points" validate:"omitempty,min=1,max=100"`
}

func (nh *NewHomework) Validate(validate *validator.Validate) error {
	nh.LectureID = core.CleanString(nh.LectureID, true /* lower */)
	nh.Title = core.CleanString(nh.Title)
	nh.Description = core.CleanString(nh.Description)
	if nh.MaxPoints == 0 {
		nh.MaxPoints = 100
	}
	return validate.Struct(nh)
}

// UpdateHomework defines what information may be provided to modify an existing Homework.
type UpdateHomework struct {
	Title       string    `json:"title" validate:"omitempty,max=200"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	MaxPoints   int       `json:"max_points" validate:"omitempty,min=1,max=100"`
	IsActive    *bool     `json:"is_active"`
}

func (uh *UpdateHomework) Validate(orig Homework, validate *validator.Validate) error {
	if title := core.CleanString(uh.Title); title != "" {
		uh.Title = title
	} else {
		uh.Title = orig.Title
	}
	if desc := core.CleanString(uh.Description); desc != "" {
		uh.Description = desc
	} else {
		uh.Description = orig.Description
	}
	if uh.DueDate.IsZero() {
		uh.DueDate = orig.DueDate
	}
	if uh.MaxPoints == 0 {
		uh.MaxPoints = orig.MaxPoints
	}
	return validate.Struct(uh)
}

// NewSubmission contains a student's answer to a homework assignment.
type NewSubmission struct {
	Content string `json:"content" validate:"required"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	return validate.Struct(ns)
}

// NewGrade contains a teacher's grading of a submission.
type NewGrade struct {
	Points   *int   `json:"points" validate:"required,min=0,max=100"`
	Comments string `json:"comments"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Comments = core.CleanString(ng.Comments)
	return validate.Struct(ng)
}

// UpdateGrade modifies an existing grade; the grade must already exist.
type UpdateGrade struct {
	Points   *int   `json:"points" validate:"omitempty,min=0,max=100"`
	Comments string `json:"comments"`
}

func (ug *UpdateGrade) Validate(orig Grade, validate *validator.Validate) error {
	if ug.Points == nil {
		ug.Points = &orig.Points
	}
	if comments := core.CleanString(ug.Comments); comments != "" {
		ug.Comments = comments
	} else {
		ug.Comments = orig.Comments
	}
	return validate.Struct(ug)
}

// QueryFilter restricts which homework assignments are enumerated; the
// scoping fields are set by the service from the authenticated principal.
type QueryFilter struct {
	Search    string `query:"search"`
	LectureID string `query:"lecture_id"`
	IsActive  *bool  `query:"is_active"`

	TeacherID string `query:"-"`
	StudentID string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.LectureID = core.CleanString(qf.LectureID, true /* lower */)
}

// SubmissionFilter restricts which submissions are enumerated.
type SubmissionFilter struct {
	HomeworkID string `query:"homework_id"`

	TeacherID string `query:"-"` // teacher of the owning course
	StudentID string `query:"-"` // submission owner
}

func (sf *SubmissionFilter) Clean() {
	sf.HomeworkID = core.CleanString(sf.HomeworkID, true /* lower */)
}
