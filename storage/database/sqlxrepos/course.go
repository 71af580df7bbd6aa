package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type courseRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	OwnerID     string    `db:"owner_id"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row courseRow) course() course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		OwnerID:     row.OwnerID,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()

	query, args, err := psql.Insert("courses").
		Columns("id", "title", "description", "owner_id", "is_active", "created_at", "updated_at").
		Values(crs.ID, crs.Title, crs.Description, crs.OwnerID, crs.IsActive, crs.CreatedAt, crs.UpdatedAt).
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	return getCourse(ctx, repo.db, id)
}

// getCourse fetches a course with its owner and membership id sets hydrated.
// Shared with the lecture and homework repositories which hydrate the same
// snapshot when walking up from a nested resource.
func getCourse(ctx context.Context, db *sqlx.DB, id string) (course.Course, error) {
	var row courseRow
	if err := db.GetContext(ctx, &row, "SELECT * FROM courses WHERE id = $1", id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course by id")
	}
	crs := row.course()

	var owner userRow
	if err := db.GetContext(ctx, &owner, "SELECT * FROM users WHERE id = $1", crs.OwnerID); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course owner")
	}
	ownerUsr := owner.user()
	crs.Owner = &ownerUsr

	teacherIDs := make([]string, 0)
	if err := db.SelectContext(ctx, &teacherIDs,
		"SELECT teacher_id FROM course_teachers WHERE course_id = $1 ORDER BY teacher_id", id); err != nil {
		return course.Course{}, errors.Wrap(err, "listing course teachers")
	}
	crs.TeacherIDs = teacherIDs

	studentIDs := make([]string, 0)
	if err := db.SelectContext(ctx, &studentIDs,
		"SELECT student_id FROM course_students WHERE course_id = $1 ORDER BY student_id", id); err != nil {
		return course.Course{}, errors.Wrap(err, "listing course students")
	}
	crs.StudentIDs = studentIDs

	return crs, nil
}

// fields clients may order course and roster listings by
var (
	courseOrderings = map[string]string{
		"title":      "courses.title",
		"created_at": "courses.created_at",
		"updated_at": "courses.updated_at",
	}
	studentOrderings = map[string]string{
		"email":      "users.email",
		"first_name": "users.first_name",
		"last_name":  "users.last_name",
		"created_at": "users.created_at",
	}
)

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	q := psql.Select("courses.*").From("courses")

	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		q = q.Where(
			sq.Or{
				sq.Expr("courses.title ILIKE ?", search),
				sq.Expr("courses.description ILIKE ?", search),
			},
		)
	}
	if filter.IsActive != nil {
		q = q.Where(sq.Eq{"courses.is_active": *filter.IsActive})
	}
	if filter.TeacherID != "" {
		q = q.Where(
			sq.Or{
				sq.Eq{"courses.owner_id": filter.TeacherID},
				sq.Expr("EXISTS (SELECT 1 FROM course_teachers ct WHERE ct.course_id = courses.id AND ct.teacher_id = ?)", filter.TeacherID),
			},
		)
	}
	if filter.StudentID != "" {
		q = q.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM course_students cs WHERE cs.course_id = courses.id AND cs.student_id = ?)", filter.StudentID))
	}
	if filter.ExcludeStudentID != "" {
		q = q.Where(sq.Expr(
			"NOT EXISTS (SELECT 1 FROM course_students cs WHERE cs.course_id = courses.id AND cs.student_id = ?)", filter.ExcludeStudentID))
	}
	q = q.OrderBy(orderBy(ordering, courseOrderings, "courses.created_at DESC"))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []courseRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, isActive *bool) (course.Course, error) {
	q := psql.Update("courses").Where(sq.Eq{"id": crs.ID})

	if crs.Title != "" {
		q = q.Set("title", crs.Title)
	}
	if crs.Description != "" {
		q = q.Set("description", crs.Description)
	}
	if !crs.UpdatedAt.IsZero() {
		q = q.Set("updated_at", crs.UpdatedAt)
	}
	if isActive != nil {
		q = q.Set("is_active", *isActive)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete("courses").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}

func (repo *courseRepository) AddStudent(ctx context.Context, courseID, studentID string) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO course_students (course_id, student_id, created_at) VALUES ($1, $2, $3)",
		courseID, studentID, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err, "course_students_pkey") {
			return course.ErrAlreadyEnrolled
		}
		return errors.Wrap(err, "enrolling student")
	}
	return nil
}

func (repo *courseRepository) RemoveStudent(ctx context.Context, courseID, studentID string) error {
	res, err := repo.db.ExecContext(ctx,
		"DELETE FROM course_students WHERE course_id = $1 AND student_id = $2", courseID, studentID)
	if err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotEnrolled
	}
	return nil
}

func (repo *courseRepository) AddTeacher(ctx context.Context, courseID, teacherID string) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO course_teachers (course_id, teacher_id, created_at) VALUES ($1, $2, $3)",
		courseID, teacherID, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err, "course_teachers_pkey") {
			return course.ErrAlreadyAssigned
		}
		return errors.Wrap(err, "assigning teacher")
	}
	return nil
}

func (repo *courseRepository) RemoveTeacher(ctx context.Context, courseID, teacherID string) error {
	res, err := repo.db.ExecContext(ctx,
		"DELETE FROM course_teachers WHERE course_id = $1 AND teacher_id = $2", courseID, teacherID)
	if err != nil {
		return errors.Wrap(err, "removing teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotCourseTeacher
	}
	return nil
}

func (repo *courseRepository) GetStudents(ctx context.Context, courseID string, ordering ...core.DBOrdering) ([]user.User, error) {
	q := psql.Select("users.*").
		From("users").
		Join("course_students cs ON cs.student_id = users.id").
		Where(sq.Eq{"cs.course_id": courseID, "users.role": user.RoleStudent}).
		OrderBy(orderBy(ordering, studentOrderings, "users.last_name ASC, users.first_name ASC"))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []userRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing course students")
	}
	return usersFromRows(rows), nil
}
