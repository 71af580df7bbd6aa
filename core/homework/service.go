package homework

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	ErrNotFound           = errors.New("homework not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	// state-machine conflicts
	ErrDuplicateSubmission = core.NewConflictError("DUPLICATE_SUBMISSION", "you have already submitted this homework")
	ErrGradeExists         = core.NewConflictError("GRADE_ALREADY_EXISTS", "this submission has already been graded")
	ErrGradeNotFound       = core.NewConflictError("GRADE_NOT_FOUND", "this submission has not been graded yet")
)

type (
	Repository interface {
		CreateHomework(ctx context.Context, hw Homework) (Homework, error)
		// GetHomeworkByID returns the homework with its lecture and the
		// lecture's course (incl. membership id sets) hydrated.
		GetHomeworkByID(ctx context.Context, id string) (Homework, error)
		// FilterHomework applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Homework.Title.
		FilterHomework(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Homework, error)
		UpdateHomework(ctx context.Context, hw Homework, isActive *bool) (Homework, error)
		DeleteHomeworkByID(ctx context.Context, ids ...string) error

		// CreateSubmission maps a (homework_id, student_id) unique violation
		// to ErrDuplicateSubmission so concurrent duplicates are rejected
		// even past the in-service existence check.
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		// GetSubmissionByID returns the submission with its student, grade and
		// homework chain (lecture, course, memberships) hydrated.
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		GetStudentSubmission(ctx context.Context, homeworkID, studentID string) (Submission, error)
		FilterSubmissions(ctx context.Context, filter SubmissionFilter, ordering ...core.DBOrdering) ([]Submission, error)

		// CreateGrade maps a submission_id unique violation to ErrGradeExists.
		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		UpdateGrade(ctx context.Context, grd Grade) (Grade, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nh NewHomework) (Homework, error) {
	now := time.Now().UTC()
	hw := Homework{
		LectureID:   nh.LectureID,
		Title:       nh.Title,
		Description: nh.Description,
		DueDate:     nh.DueDate.UTC(),
		MaxPoints:   nh.MaxPoints,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	hw, err := svc.repo.CreateHomework(ctx, hw)
	if err != nil {
		return Homework{}, err
	}
	return svc.repo.GetHomeworkByID(ctx, hw.ID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Homework, error) {
	return svc.repo.GetHomeworkByID(ctx, id)
}

// Query enumerates the homework visible to `viewer` by walking up to the
// owning course.
func (svc *Service) Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering ...core.DBOrdering) ([]Homework, error) {
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
	return svc.repo.FilterHomework(ctx, *filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, id string, uh UpdateHomework) (Homework, error) {
	hw := Homework{
		ID:          id,
		Title:       uh.Title,
		Description: uh.Description,
		DueDate:     uh.DueDate.UTC(),
		MaxPoints:   uh.MaxPoints,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateHomework(ctx, hw, uh.IsActive)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteHomeworkByID(ctx, ids...)
}

// Submit records `student`'s one and only submission for `hw`.
// The late flag is computed here, once, against the homework due date.
// A prior submission is rejected with ErrDuplicateSubmission; the check is an
// advisory fast path backed by the storage unique constraint.
func (svc *Service) Submit(ctx context.Context, hw Homework, student user.User, ns NewSubmission) (Submission, error) {
	if _, err := svc.repo.GetStudentSubmission(ctx, hw.ID, student.ID); err == nil {
		return Submission{}, ErrDuplicateSubmission
	} else if errors.Cause(err) != ErrSubmissionNotFound {
		return Submission{}, err
	}

	now := time.Now().UTC()
	sub := Submission{
		HomeworkID:  hw.ID,
		StudentID:   student.ID,
		Content:     ns.Content,
		IsLate:      now.After(hw.DueDate),
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	sub, err := svc.repo.CreateSubmission(ctx, sub)
	if err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmissionByID(ctx, sub.ID)
}

func (svc *Service) GetSubmissionByID(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

// QuerySubmissions enumerates the submissions visible to `viewer`: a teacher
// sees submissions of courses they teach, a student only their own.
func (svc *Service) QuerySubmissions(ctx context.Context, viewer user.User, filter *SubmissionFilter, ordering ...core.DBOrdering) ([]Submission, error) {
	if filter == nil {
		filter = &SubmissionFilter{}
	}
	filter.Clean()
	switch {
	case viewer.IsTeacher():
		filter.TeacherID = viewer.ID
	case viewer.IsStudent():
		filter.StudentID = viewer.ID
	}
	return svc.repo.FilterSubmissions(ctx, *filter, ordering...)
}

// Grade records the one and only grade for `sub`, by `grader`.
// A second grading attempt is rejected with ErrGradeExists; changes go
// through UpdateGrade.
func (svc *Service) Grade(ctx context.Context, sub Submission, grader user.User, ng NewGrade) (Submission, error) {
	if sub.Grade != nil {
		return Submission{}, ErrGradeExists
	}

	now := time.Now().UTC()
	grd := Grade{
		SubmissionID: sub.ID,
		Points:       *ng.Points,
		Comments:     ng.Comments,
		GradedByID:   grader.ID,
		GradedAt:     now,
		UpdatedAt:    now,
	}
	if _, err := svc.repo.CreateGrade(ctx, grd); err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmissionByID(ctx, sub.ID)
}

// UpdateGrade modifies the existing grade of `sub`; fails with
// ErrGradeNotFound if the submission has not been graded.
func (svc *Service) UpdateGrade(ctx context.Context, sub Submission, ug UpdateGrade) (Submission, error) {
	if sub.Grade == nil {
		return Submission{}, ErrGradeNotFound
	}

	grd := *sub.Grade
	grd.Points = *ug.Points
	grd.Comments = ug.Comments
	grd.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateGrade(ctx, grd); err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmissionByID(ctx, sub.ID)
}
