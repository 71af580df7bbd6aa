package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/homework"
)

type homeworkRepository struct {
	db       *homeworkTable
	users    *userTable
	lectures *lectureRepository
}

var _ homework.Repository = (*homeworkRepository)(nil)

func NewHomeworkRepository(db *DB) *homeworkRepository {
	return &homeworkRepository{db: db.homework, users: db.user, lectures: NewLectureRepository(db)}
}

func (repo *homeworkRepository) CreateHomework(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	if _, err := repo.lectures.GetLectureByID(ctx, hw.LectureID); err != nil {
		return homework.Homework{}, err
	}
	repo.db.Lock()
	hw.ID = uuid.New().String()
	repo.db.table[hw.ID] = &hw
	repo.db.Unlock()
	return repo.GetHomeworkByID(ctx, hw.ID)
}

func (repo *homeworkRepository) GetHomeworkByID(ctx context.Context, id string) (homework.Homework, error) {
	repo.db.RLock()
	h, ok := repo.db.table[id]
	if !ok {
		repo.db.RUnlock()
		return homework.Homework{}, homework.ErrNotFound
	}
	hw := *h
	repo.db.RUnlock()

	lec, err := repo.lectures.GetLectureByID(ctx, hw.LectureID)
	if err != nil {
		return homework.Homework{}, err
	}
	hw.Lecture = &lec
	return hw, nil
}

func (repo *homeworkRepository) FilterHomework(ctx context.Context, filter homework.QueryFilter, ordering ...core.DBOrdering) ([]homework.Homework, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]homework.Homework, 0)
	for _, h := range repo.db.table {
		if filter.Search != "" && !matchSearch(filter.Search, h.Title) {
			continue
		}
		if filter.LectureID != "" && h.LectureID != filter.LectureID {
			continue
		}
		if filter.IsActive != nil && h.IsActive != *filter.IsActive {
			continue
		}
		courseID, ok := repo.lectureCourseID(h.LectureID)
		if !ok {
			continue
		}
		if filter.TeacherID != "" && !repo.lectures.courses.isCourseTeacher(courseID, filter.TeacherID) {
			continue
		}
		if filter.StudentID != "" && !repo.lectures.courses.isCourseStudent(courseID, filter.StudentID) {
			continue
		}
		assignments = append(assignments, *h)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].DueDate.Before(assignments[j].DueDate) })
	return assignments, nil
}

func (repo *homeworkRepository) lectureCourseID(lectureID string) (string, bool) {
	repo.lectures.db.RLock()
	defer repo.lectures.db.RUnlock()
	if l, ok := repo.lectures.db.table[lectureID]; ok {
		return l.CourseID, true
	}
	return "", false
}

func (repo *homeworkRepository) UpdateHomework(ctx context.Context, hw homework.Homework, isActive *bool) (homework.Homework, error) {
	repo.db.Lock()
	orig, ok := repo.db.table[hw.ID]
	if !ok {
		repo.db.Unlock()
		return homework.Homework{}, homework.ErrNotFound
	}
	if hw.Title != "" {
		orig.Title = hw.Title
	}
	if hw.Description != "" {
		orig.Description = hw.Description
	}
	if !hw.DueDate.IsZero() {
		orig.DueDate = hw.DueDate
	}
	if hw.MaxPoints != 0 {
		orig.MaxPoints = hw.MaxPoints
	}
	if !hw.UpdatedAt.IsZero() {
		orig.UpdatedAt = hw.UpdatedAt
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	repo.db.Unlock()
	return repo.GetHomeworkByID(ctx, hw.ID)
}

func (repo *homeworkRepository) DeleteHomeworkByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
		for subID, sub := range repo.db.submissions {
			if sub.HomeworkID == id {
				delete(repo.db.submissions, subID)
				delete(repo.db.grades, subID)
			}
		}
	}
	return nil
}

func (repo *homeworkRepository) CreateSubmission(ctx context.Context, sub homework.Submission) (homework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.submissions {
		if s.HomeworkID == sub.HomeworkID && s.StudentID == sub.StudentID {
			return homework.Submission{}, homework.ErrDuplicateSubmission
		}
	}
	sub.ID = uuid.New().String()
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *homeworkRepository) GetSubmissionByID(ctx context.Context, id string) (homework.Submission, error) {
	repo.db.RLock()
	s, ok := repo.db.submissions[id]
	if !ok {
		repo.db.RUnlock()
		return homework.Submission{}, homework.ErrSubmissionNotFound
	}
	sub := *s
	if grd, ok := repo.db.grades[id]; ok {
		g := *grd
		sub.Grade = &g
	}
	repo.db.RUnlock()

	repo.users.RLock()
	if usr, ok := repo.users.table[sub.StudentID]; ok {
		u := *usr
		sub.Student = &u
	}
	repo.users.RUnlock()

	hw, err := repo.GetHomeworkByID(ctx, sub.HomeworkID)
	if err != nil {
		return homework.Submission{}, err
	}
	sub.Homework = &hw
	return sub, nil
}

func (repo *homeworkRepository) GetStudentSubmission(ctx context.Context, homeworkID, studentID string) (homework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for id, s := range repo.db.submissions {
		if s.HomeworkID == homeworkID && s.StudentID == studentID {
			sub := *s
			if grd, ok := repo.db.grades[id]; ok {
				g := *grd
				sub.Grade = &g
			}
			return sub, nil
		}
	}
	return homework.Submission{}, homework.ErrSubmissionNotFound
}

func (repo *homeworkRepository) FilterSubmissions(ctx context.Context, filter homework.SubmissionFilter, ordering ...core.DBOrdering) ([]homework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]homework.Submission, 0)
	for id, s := range repo.db.submissions {
		if filter.HomeworkID != "" && s.HomeworkID != filter.HomeworkID {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != "" {
			h, ok := repo.db.table[s.HomeworkID]
			if !ok {
				continue
			}
			courseID, ok := repo.lectureCourseID(h.LectureID)
			if !ok || !repo.lectures.courses.isCourseTeacher(courseID, filter.TeacherID) {
				continue
			}
		}
		sub := *s
		if grd, ok := repo.db.grades[id]; ok {
			g := *grd
			sub.Grade = &g
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *homeworkRepository) CreateGrade(ctx context.Context, grd homework.Grade) (homework.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.submissions[grd.SubmissionID]; !ok {
		return homework.Grade{}, homework.ErrSubmissionNotFound
	}
	if _, ok := repo.db.grades[grd.SubmissionID]; ok {
		return homework.Grade{}, homework.ErrGradeExists
	}
	grd.ID = uuid.New().String()
	repo.db.grades[grd.SubmissionID] = &grd
	return grd, nil
}

func (repo *homeworkRepository) UpdateGrade(ctx context.Context, grd homework.Grade) (homework.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.grades[grd.SubmissionID]
	if !ok {
		return homework.Grade{}, homework.ErrGradeNotFound
	}
	orig.Points = grd.Points
	orig.Comments = grd.Comments
	orig.UpdatedAt = grd.UpdatedAt
	return *orig, nil
}
