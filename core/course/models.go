package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

// Course is a hydrated snapshot of a course and its membership:
// the owning teacher, the co-teacher set and the enrolled student set.
// Authorization predicates operate on this snapshot without touching storage.
type Course struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OwnerID     string     `json:"owner_id"`
	Owner       *user.User `json:"owner,omitempty"`
	TeacherIDs  []string   `json:"teacher_ids"` // co-teachers; does not include the owner
	StudentIDs  []string   `json:"student_ids"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

// HasCoTeacher reports whether the user id is in the co-teacher set.
func (c Course) HasCoTeacher(userID string) bool { return containsID(c.TeacherIDs, userID) }

// HasStudent reports whether the user id is in the student set.
func (c Course) HasStudent(userID string) bool { return containsID(c.StudentIDs, userID) }

func containsID(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

// NewCourse contains information needed to create a new Course.
// The owner is the authenticated teacher, never caller-provided.
type NewCourse struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string `json:"title" validate:"omitempty,max=200"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}
	return validate.Struct(uc)
}

// MemberRequest identifies the user a roster mutation applies to.
type MemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

func (mr *MemberRequest) Validate(validate *validator.Validate) error {
	mr.UserID = core.CleanString(mr.UserID, true /* lower */)
	return validate.Struct(mr)
}

// QueryFilter restricts which courses are enumerated. The scoping fields
// (TeacherID, StudentID, ExcludeStudentID) are set by the service from the
// authenticated principal, never bound from the request.
type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`

	TeacherID        string `query:"-"` // owner or co-teacher
	StudentID        string `query:"-"` // enrolled student
	ExcludeStudentID string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
