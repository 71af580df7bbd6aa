package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	ErrNotFound = errors.New("course not found")

	// business-rule conflicts
	ErrNotAvailable      = core.NewConflictError("COURSE_NOT_AVAILABLE", "this course is not available for enrollment")
	ErrAlreadyEnrolled   = core.NewConflictError("ALREADY_ENROLLED", "student is already enrolled in this course")
	ErrNotEnrolled       = core.NewConflictError("NOT_ENROLLED", "student is not enrolled in this course")
	ErrAlreadyAssigned   = core.NewConflictError("ALREADY_ASSIGNED", "teacher is already assigned to this course")
	ErrNotCourseTeacher  = core.NewConflictError("NOT_A_COURSE_TEACHER", "user is not a teacher of this course")
	ErrCannotRemoveOwner = core.NewConflictError("CANNOT_REMOVE_OWNER", "the course owner cannot be removed")
	ErrInvalidUserRole   = core.NewConflictError("INVALID_USER_ROLE", "user does not have the required role")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// GetCourseByID returns the course with its owner and membership id sets hydrated.
		GetCourseByID(ctx context.Context, id string) (Course, error)
		// FilterCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Course.Title or
		// Course.Description.
		FilterCourses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, isActive *bool) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error

		// membership; duplicate inserts map to ErrAlreadyEnrolled / ErrAlreadyAssigned,
		// missing rows on delete map to ErrNotEnrolled / ErrNotCourseTeacher.
		AddStudent(ctx context.Context, courseID, studentID string) error
		RemoveStudent(ctx context.Context, courseID, studentID string) error
		AddTeacher(ctx context.Context, courseID, teacherID string) error
		RemoveTeacher(ctx context.Context, courseID, teacherID string) error
		// GetStudents returns the student-role members of the course.
		GetStudents(ctx context.Context, courseID string, ordering ...core.DBOrdering) ([]user.User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create makes `owner` the course's primary teacher.
func (svc *Service) Create(ctx context.Context, owner user.User, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		OwnerID:     owner.ID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// Query enumerates the courses visible to `viewer`: a teacher sees courses
// they own or co-teach, a student the courses they are enrolled in.
func (svc *Service) Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	filter.Clean()
	switch {
	case viewer.IsTeacher():
		filter.TeacherID = viewer.ID
	case viewer.IsStudent():
		filter.StudentID = viewer.ID
	}
	return svc.repo.FilterCourses(ctx, *filter, ordering...)
}

// Available lists the active courses `student` is not yet enrolled in.
func (svc *Service) Available(ctx context.Context, student user.User, search string, ordering ...core.DBOrdering) ([]Course, error) {
	active := true
	filter := QueryFilter{
		Search:           core.CleanString(search),
		IsActive:         &active,
		ExcludeStudentID: student.ID,
	}
	return svc.repo.FilterCourses(ctx, filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs := Course{
		ID:          id,
		Title:       uc.Title,
		Description: uc.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateCourse(ctx, crs, uc.IsActive)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}

// Enroll adds `student` to the course's student set.
// The course must be active and the student not already enrolled; the
// membership check is an advisory fast path, the storage unique constraint
// settles concurrent duplicates.
func (svc *Service) Enroll(ctx context.Context, crs Course, student user.User) error {
	if !student.IsStudent() {
		return ErrInvalidUserRole
	}
	if !crs.IsActive {
		return ErrNotAvailable
	}
	if crs.HasStudent(student.ID) {
		return ErrAlreadyEnrolled
	}
	return svc.repo.AddStudent(ctx, crs.ID, student.ID)
}

// Unenroll removes `student` from the course's student set; the student must
// currently be enrolled.
func (svc *Service) Unenroll(ctx context.Context, crs Course, student user.User) error {
	if !crs.HasStudent(student.ID) {
		return ErrNotEnrolled
	}
	return svc.repo.RemoveStudent(ctx, crs.ID, student.ID)
}

// AddStudent enrolls an arbitrary student on their behalf (teacher action).
func (svc *Service) AddStudent(ctx context.Context, crs Course, student user.User) error {
	if !student.IsStudent() {
		return ErrInvalidUserRole
	}
	if crs.HasStudent(student.ID) {
		return ErrAlreadyEnrolled
	}
	return svc.repo.AddStudent(ctx, crs.ID, student.ID)
}

func (svc *Service) RemoveStudent(ctx context.Context, crs Course, student user.User) error {
	if !student.IsStudent() {
		return ErrInvalidUserRole
	}
	if !crs.HasStudent(student.ID) {
		return ErrNotEnrolled
	}
	return svc.repo.RemoveStudent(ctx, crs.ID, student.ID)
}

// AddTeacher adds a co-teacher to the course.
func (svc *Service) AddTeacher(ctx context.Context, crs Course, teacher user.User) error {
	if !teacher.IsTeacher() {
		return ErrInvalidUserRole
	}
	if teacher.ID == crs.OwnerID || crs.HasCoTeacher(teacher.ID) {
		return ErrAlreadyAssigned
	}
	return svc.repo.AddTeacher(ctx, crs.ID, teacher.ID)
}

// RemoveTeacher removes a co-teacher. The owner can never be removed through
// this path, regardless of caller.
func (svc *Service) RemoveTeacher(ctx context.Context, crs Course, teacher user.User) error {
	if !teacher.IsTeacher() {
		return ErrInvalidUserRole
	}
	if teacher.ID == crs.OwnerID {
		return ErrCannotRemoveOwner
	}
	if !crs.HasCoTeacher(teacher.ID) {
		return ErrNotCourseTeacher
	}
	return svc.repo.RemoveTeacher(ctx, crs.ID, teacher.ID)
}

// Students lists the course's student-role members.
func (svc *Service) Students(ctx context.Context, crs Course, ordering ...core.DBOrdering) ([]user.User, error) {
	return svc.repo.GetStudents(ctx, crs.ID, ordering...)
}
