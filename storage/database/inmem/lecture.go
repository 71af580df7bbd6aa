package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/lecture"
)

type lectureRepository struct {
	db      *lectureTable
	courses *courseRepository
}

var _ lecture.Repository = (*lectureRepository)(nil)

func NewLectureRepository(db *DB) *lectureRepository {
	return &lectureRepository{db: db.lecture, courses: NewCourseRepository(db)}
}

func (repo *lectureRepository) CreateLecture(ctx context.Context, lec lecture.Lecture) (lecture.Lecture, error) {
	if _, err := repo.courses.GetCourseByID(ctx, lec.CourseID); err != nil {
		return lecture.Lecture{}, err
	}
	repo.db.Lock()
	lec.ID = uuid.New().String()
	repo.db.table[lec.ID] = &lec
	repo.db.Unlock()
	return repo.GetLectureByID(ctx, lec.ID)
}

func (repo *lectureRepository) GetLectureByID(ctx context.Context, id string) (lecture.Lecture, error) {
	repo.db.RLock()
	l, ok := repo.db.table[id]
	if !ok {
		repo.db.RUnlock()
		return lecture.Lecture{}, lecture.ErrNotFound
	}
	lec := *l
	repo.db.RUnlock()

	crs, err := repo.courses.GetCourseByID(ctx, lec.CourseID)
	if err != nil {
		return lecture.Lecture{}, err
	}
	lec.Course = &crs
	return lec, nil
}

func (repo *lectureRepository) FilterLectures(ctx context.Context, filter lecture.QueryFilter, ordering ...core.DBOrdering) ([]lecture.Lecture, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lectures := make([]lecture.Lecture, 0)
	for _, l := range repo.db.table {
		if filter.Search != "" && !matchSearch(filter.Search, l.Topic) {
			continue
		}
		if filter.CourseID != "" && l.CourseID != filter.CourseID {
			continue
		}
		if filter.TeacherID != "" && !repo.courses.isCourseTeacher(l.CourseID, filter.TeacherID) {
			continue
		}
		if filter.StudentID != "" && !repo.courses.isCourseStudent(l.CourseID, filter.StudentID) {
			continue
		}
		lectures = append(lectures, *l)
	}
	sort.Slice(lectures, func(i, j int) bool { return lectures[i].CreatedAt.Before(lectures[j].CreatedAt) })
	return lectures, nil
}

func (repo *lectureRepository) UpdateLecture(ctx context.Context, lec lecture.Lecture, isPublished *bool) (lecture.Lecture, error) {
	repo.db.Lock()
	orig, ok := repo.db.table[lec.ID]
	if !ok {
		repo.db.Unlock()
		return lecture.Lecture{}, lecture.ErrNotFound
	}
	if lec.Topic != "" {
		orig.Topic = lec.Topic
	}
	if lec.Description != "" {
		orig.Description = lec.Description
	}
	if !lec.UpdatedAt.IsZero() {
		orig.UpdatedAt = lec.UpdatedAt
	}
	if isPublished != nil {
		orig.IsPublished = *isPublished
	}
	repo.db.Unlock()
	return repo.GetLectureByID(ctx, lec.ID)
}

func (repo *lectureRepository) DeleteLecturesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
