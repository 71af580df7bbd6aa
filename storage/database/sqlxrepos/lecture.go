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
	"github.com/darasahq/darasa/core/lecture"
)

type lectureRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Topic       string    `db:"topic"`
	Description string    `db:"description"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row lectureRow) lecture() lecture.Lecture {
	return lecture.Lecture{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Topic:       row.Topic,
		Description: row.Description,
		IsPublished: row.IsPublished,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type lectureRepository struct {
	db *sqlx.DB
}

var _ lecture.Repository = (*lectureRepository)(nil)

func NewLectureRepository(db *sqlx.DB) *lectureRepository {
	return &lectureRepository{db: db}
}

func (repo *lectureRepository) CreateLecture(ctx context.Context, lec lecture.Lecture) (lecture.Lecture, error) {
	lec.ID = uuid.New().String()

	query, args, err := psql.Insert("lectures").
		Columns("id", "course_id", "topic", "description", "is_published", "created_at", "updated_at").
		Values(lec.ID, lec.CourseID, lec.Topic, lec.Description, lec.IsPublished, lec.CreatedAt, lec.UpdatedAt).
		ToSql()
	if err != nil {
		return lecture.Lecture{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return lecture.Lecture{}, course.ErrNotFound
		}
		return lecture.Lecture{}, errors.Wrap(err, "creating lecture")
	}
	return repo.GetLectureByID(ctx, lec.ID)
}

func (repo *lectureRepository) GetLectureByID(ctx context.Context, id string) (lecture.Lecture, error) {
	return getLecture(ctx, repo.db, id)
}

// getLecture fetches a lecture with its course snapshot hydrated. Shared with
// the homework repository which walks the same chain.
func getLecture(ctx context.Context, db *sqlx.DB, id string) (lecture.Lecture, error) {
	var row lectureRow
	if err := db.GetContext(ctx, &row, "SELECT * FROM lectures WHERE id = $1", id); err != nil {
		return lecture.Lecture{}, trapNoRowsErr(err, lecture.ErrNotFound, "finding lecture by id")
	}
	lec := row.lecture()

	crs, err := getCourse(ctx, db, lec.CourseID)
	if err != nil {
		return lecture.Lecture{}, err
	}
	lec.Course = &crs
	return lec, nil
}

// fields clients may order lecture listings by
var lectureOrderings = map[string]string{
	"topic":      "lectures.topic",
	"created_at": "lectures.created_at",
	"updated_at": "lectures.updated_at",
}

func (repo *lectureRepository) FilterLectures(ctx context.Context, filter lecture.QueryFilter, ordering ...core.DBOrdering) ([]lecture.Lecture, error) {
	q := psql.Select("lectures.*").From("lectures")

	if filter.Search != "" {
		q = q.Where(sq.Expr("lectures.topic ILIKE ?", "%"+filter.Search+"%"))
	}
	if filter.CourseID != "" {
		q = q.Where(sq.Eq{"lectures.course_id": filter.CourseID})
	}
	if filter.TeacherID != "" {
		q = q.Where(sq.Expr(
			`EXISTS (
				SELECT 1 FROM courses c
				WHERE c.id = lectures.course_id
				AND (c.owner_id = ? OR EXISTS (
					SELECT 1 FROM course_teachers ct WHERE ct.course_id = c.id AND ct.teacher_id = ?
				))
			)`, filter.TeacherID, filter.TeacherID))
	}
	if filter.StudentID != "" {
		q = q.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM course_students cs WHERE cs.course_id = lectures.course_id AND cs.student_id = ?)",
			filter.StudentID))
	}
	q = q.OrderBy(orderBy(ordering, lectureOrderings, "lectures.created_at ASC"))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []lectureRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering lectures")
	}
	lectures := make([]lecture.Lecture, 0, len(rows))
	for _, row := range rows {
		lectures = append(lectures, row.lecture())
	}
	return lectures, nil
}

func (repo *lectureRepository) UpdateLecture(ctx context.Context, lec lecture.Lecture, isPublished *bool) (lecture.Lecture, error) {
	q := psql.Update("lectures").Where(sq.Eq{"id": lec.ID})

	if lec.Topic != "" {
		q = q.Set("topic", lec.Topic)
	}
	if lec.Description != "" {
		q = q.Set("description", lec.Description)
	}
	if !lec.UpdatedAt.IsZero() {
		q = q.Set("updated_at", lec.UpdatedAt)
	}
	if isPublished != nil {
		q = q.Set("is_published", *isPublished)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return lecture.Lecture{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return lecture.Lecture{}, errors.Wrap(err, "updating lecture")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lecture.Lecture{}, lecture.ErrNotFound
	}
	return repo.GetLectureByID(ctx, lec.ID)
}

func (repo *lectureRepository) DeleteLecturesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete("lectures").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting lectures")
	}
	return nil
}
