package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type courseRepository struct {
	db    *courseTable
	users *userTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course, users: db.user}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	crs.ID = uuid.New().String()
	repo.db.table[crs.ID] = &crs
	repo.db.teachers[crs.ID] = make(map[string]bool)
	repo.db.students[crs.ID] = make(map[string]bool)
	repo.db.Unlock()
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.hydrate(id)
}

// hydrate assembles the membership snapshot; callers must hold the lock.
func (repo *courseRepository) hydrate(id string) (course.Course, error) {
	c, ok := repo.db.table[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs := *c
	crs.TeacherIDs = sortedKeys(repo.db.teachers[id])
	crs.StudentIDs = sortedKeys(repo.db.students[id])

	repo.users.RLock()
	if owner, ok := repo.users.table[crs.OwnerID]; ok {
		o := *owner
		crs.Owner = &o
	}
	repo.users.RUnlock()
	return crs, nil
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for id, c := range repo.db.table {
		if filter.Search != "" && !matchSearch(filter.Search, c.Title, c.Description) {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		if filter.TeacherID != "" && c.OwnerID != filter.TeacherID && !repo.db.teachers[id][filter.TeacherID] {
			continue
		}
		if filter.StudentID != "" && !repo.db.students[id][filter.StudentID] {
			continue
		}
		if filter.ExcludeStudentID != "" && repo.db.students[id][filter.ExcludeStudentID] {
			continue
		}
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, isActive *bool) (course.Course, error) {
	repo.db.Lock()
	orig, ok := repo.db.table[crs.ID]
	if !ok {
		repo.db.Unlock()
		return course.Course{}, course.ErrNotFound
	}
	if crs.Title != "" {
		orig.Title = crs.Title
	}
	if crs.Description != "" {
		orig.Description = crs.Description
	}
	if !crs.UpdatedAt.IsZero() {
		orig.UpdatedAt = crs.UpdatedAt
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	repo.db.Unlock()
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
		delete(repo.db.teachers, id)
		delete(repo.db.students, id)
	}
	return nil
}

func (repo *courseRepository) AddStudent(ctx context.Context, courseID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	students, ok := repo.db.students[courseID]
	if !ok {
		return course.ErrNotFound
	}
	if students[studentID] {
		return course.ErrAlreadyEnrolled
	}
	students[studentID] = true
	return nil
}

func (repo *courseRepository) RemoveStudent(ctx context.Context, courseID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	students, ok := repo.db.students[courseID]
	if !ok || !students[studentID] {
		return course.ErrNotEnrolled
	}
	delete(students, studentID)
	return nil
}

func (repo *courseRepository) AddTeacher(ctx context.Context, courseID, teacherID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	teachers, ok := repo.db.teachers[courseID]
	if !ok {
		return course.ErrNotFound
	}
	if teachers[teacherID] {
		return course.ErrAlreadyAssigned
	}
	teachers[teacherID] = true
	return nil
}

func (repo *courseRepository) RemoveTeacher(ctx context.Context, courseID, teacherID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	teachers, ok := repo.db.teachers[courseID]
	if !ok || !teachers[teacherID] {
		return course.ErrNotCourseTeacher
	}
	delete(teachers, teacherID)
	return nil
}

func (repo *courseRepository) GetStudents(ctx context.Context, courseID string, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	ids := sortedKeys(repo.db.students[courseID])
	repo.db.RUnlock()

	repo.users.RLock()
	defer repo.users.RUnlock()

	students := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.users.table[id]; ok && usr.IsStudent() {
			students = append(students, *usr)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		li, lj := strings.ToLower(students[i].LastName), strings.ToLower(students[j].LastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(students[i].FirstName) < strings.ToLower(students[j].FirstName)
	})
	return students, nil
}

// isCourseTeacher reports whether userID owns or co-teaches the course.
func (repo *courseRepository) isCourseTeacher(courseID, userID string) bool {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if c, ok := repo.db.table[courseID]; ok && c.OwnerID == userID {
		return true
	}
	return repo.db.teachers[courseID][userID]
}

func (repo *courseRepository) isCourseStudent(courseID, userID string) bool {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.students[courseID][userID]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
