package lecture

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var ErrNotFound = errors.New("lecture not found")

type (
	Repository interface {
		CreateLecture(ctx context.Context, lec Lecture) (Lecture, error)
		// GetLectureByID returns the lecture with its course (and the course's
		// membership id sets) hydrated.
		GetLectureByID(ctx context.Context, id string) (Lecture, error)
		// FilterLectures applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Lecture.Topic.
		FilterLectures(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Lecture, error)
		UpdateLecture(ctx context.Context, lec Lecture, isPublished *bool) (Lecture, error)
		DeleteLecturesByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nl NewLecture) (Lecture, error) {
	now := time.Now().UTC()
	lec := Lecture{
		CourseID:    nl.CourseID,
		Topic:       nl.Topic,
		Description: nl.Description,
		IsPublished: nl.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	lec, err := svc.repo.CreateLecture(ctx, lec)
	if err != nil {
		return Lecture{}, err
	}
	return svc.repo.GetLectureByID(ctx, lec.ID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Lecture, error) {
	return svc.repo.GetLectureByID(ctx, id)
}

// Query enumerates the lectures visible to `viewer` by walking up to the
// owning course: a teacher sees lectures of courses they own or co-teach,
// a student those of courses they are enrolled in.
func (svc *Service) Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering ...core.DBOrdering) ([]Lecture, error) {
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
	return svc.repo.FilterLectures(ctx, *filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, id string, ul UpdateLecture) (Lecture, error) {
	lec := Lecture{
		ID:          id,
		Topic:       ul.Topic,
		Description: ul.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateLecture(ctx, lec, ul.IsPublished)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteLecturesByID(ctx, ids...)
}
