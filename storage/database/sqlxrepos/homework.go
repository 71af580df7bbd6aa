package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/lecture"
)

type homeworkRow struct {
	ID          string    `db:"id"`
	LectureID   string    `db:"lecture_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     time.Time `db:"due_date"`
	MaxPoints   int       `db:"max_points"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row homeworkRow) homework() homework.Homework {
	return homework.Homework{
		ID:          row.ID,
		LectureID:   row.LectureID,
		Title:       row.Title,
		Description: row.Description,
		DueDate:     row.DueDate,
		MaxPoints:   row.MaxPoints,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// submissionRow carries the submission columns plus the grade columns from a
// LEFT JOIN on grades; a null grade id means the submission is ungraded.
type submissionRow struct {
	ID          string    `db:"id"`
	HomeworkID  string    `db:"homework_id"`
	StudentID   string    `db:"student_id"`
	Content     string    `db:"content"`
	IsLate      bool      `db:"is_late"`
	SubmittedAt time.Time `db:"submitted_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	GradeID         null.String `db:"grade_id"`
	GradePoints     null.Int    `db:"grade_points"`
	GradeComments   null.String `db:"grade_comments"`
	GradeGradedByID null.String `db:"grade_graded_by_id"`
	GradeGradedAt   null.Time   `db:"grade_graded_at"`
	GradeUpdatedAt  null.Time   `db:"grade_updated_at"`
}

func (row submissionRow) submission() homework.Submission {
	sub := homework.Submission{
		ID:          row.ID,
		HomeworkID:  row.HomeworkID,
		StudentID:   row.StudentID,
		Content:     row.Content,
		IsLate:      row.IsLate,
		SubmittedAt: row.SubmittedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.GradeID.Valid {
		sub.Grade = &homework.Grade{
			ID:           row.GradeID.String,
			SubmissionID: row.ID,
			Points:       row.GradePoints.Int,
			Comments:     row.GradeComments.String,
			GradedByID:   row.GradeGradedByID.String,
			GradedAt:     row.GradeGradedAt.Time,
			UpdatedAt:    row.GradeUpdatedAt.Time,
		}
	}
	return sub
}

const submissionCols = `hs.id, hs.homework_id, hs.student_id, hs.content, hs.is_late, hs.submitted_at, hs.updated_at,
	g.id AS grade_id, g.points AS grade_points, g.comments AS grade_comments,
	g.graded_by_id AS grade_graded_by_id, g.graded_at AS grade_graded_at, g.updated_at AS grade_updated_at`

type homeworkRepository struct {
	db *sqlx.DB
}

var _ homework.Repository = (*homeworkRepository)(nil)

func NewHomeworkRepository(db *sqlx.DB) *homeworkRepository {
	return &homeworkRepository{db: db}
}

func (repo *homeworkRepository) CreateHomework(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	hw.ID = uuid.New().String()

	query, args, err := psql.Insert("homework").
		Columns("id", "lecture_id", "title", "description", "due_date", "max_points", "is_active", "created_at", "updated_at").
		Values(hw.ID, hw.LectureID, hw.Title, hw.Description, hw.DueDate, hw.MaxPoints, hw.IsActive, hw.CreatedAt, hw.UpdatedAt).
		ToSql()
	if err != nil {
		return homework.Homework{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return homework.Homework{}, lecture.ErrNotFound
		}
		return homework.Homework{}, errors.Wrap(err, "creating homework")
	}
	return repo.GetHomeworkByID(ctx, hw.ID)
}

func (repo *homeworkRepository) GetHomeworkByID(ctx context.Context, id string) (homework.Homework, error) {
	return getHomework(ctx, repo.db, id)
}

func getHomework(ctx context.Context, db *sqlx.DB, id string) (homework.Homework, error) {
	var row homeworkRow
	if err := db.GetContext(ctx, &row, "SELECT * FROM homework WHERE id = $1", id); err != nil {
		return homework.Homework{}, trapNoRowsErr(err, homework.ErrNotFound, "finding homework by id")
	}
	hw := row.homework()

	lec, err := getLecture(ctx, db, hw.LectureID)
	if err != nil {
		return homework.Homework{}, err
	}
	hw.Lecture = &lec
	return hw, nil
}

// fields clients may order homework and submission listings by
var (
	homeworkOrderings = map[string]string{
		"title":      "homework.title",
		"due_date":   "homework.due_date",
		"created_at": "homework.created_at",
		"updated_at": "homework.updated_at",
	}
	submissionOrderings = map[string]string{
		"submitted_at": "hs.submitted_at",
		"is_late":      "hs.is_late",
	}
)

func (repo *homeworkRepository) FilterHomework(ctx context.Context, filter homework.QueryFilter, ordering ...core.DBOrdering) ([]homework.Homework, error) {
	q := psql.Select("homework.*").From("homework")

	if filter.Search != "" {
		q = q.Where(sq.Expr("homework.title ILIKE ?", "%"+filter.Search+"%"))
	}
	if filter.LectureID != "" {
		q = q.Where(sq.Eq{"homework.lecture_id": filter.LectureID})
	}
	if filter.IsActive != nil {
		q = q.Where(sq.Eq{"homework.is_active": *filter.IsActive})
	}
	if filter.TeacherID != "" {
		q = q.Where(sq.Expr(
			`EXISTS (
				SELECT 1 FROM lectures l
				JOIN courses c ON c.id = l.course_id
				WHERE l.id = homework.lecture_id
				AND (c.owner_id = ? OR EXISTS (
					SELECT 1 FROM course_teachers ct WHERE ct.course_id = c.id AND ct.teacher_id = ?
				))
			)`, filter.TeacherID, filter.TeacherID))
	}
	if filter.StudentID != "" {
		q = q.Where(sq.Expr(
			`EXISTS (
				SELECT 1 FROM lectures l
				JOIN course_students cs ON cs.course_id = l.course_id
				WHERE l.id = homework.lecture_id AND cs.student_id = ?
			)`, filter.StudentID))
	}
	q = q.OrderBy(orderBy(ordering, homeworkOrderings, "homework.due_date ASC"))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []homeworkRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering homework")
	}
	assignments := make([]homework.Homework, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.homework())
	}
	return assignments, nil
}

func (repo *homeworkRepository) UpdateHomework(ctx context.Context, hw homework.Homework, isActive *bool) (homework.Homework, error) {
	q := psql.Update("homework").Where(sq.Eq{"id": hw.ID})

	if hw.Title != "" {
		q = q.Set("title", hw.Title)
	}
	if hw.Description != "" {
		q = q.Set("description", hw.Description)
	}
	if !hw.DueDate.IsZero() {
		q = q.Set("due_date", hw.DueDate)
	}
	if hw.MaxPoints != 0 {
		q = q.Set("max_points", hw.MaxPoints)
	}
	if !hw.UpdatedAt.IsZero() {
		q = q.Set("updated_at", hw.UpdatedAt)
	}
	if isActive != nil {
		q = q.Set("is_active", *isActive)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return homework.Homework{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return homework.Homework{}, errors.Wrap(err, "updating homework")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return homework.Homework{}, homework.ErrNotFound
	}
	return repo.GetHomeworkByID(ctx, hw.ID)
}

func (repo *homeworkRepository) DeleteHomeworkByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete("homework").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	return nil
}

func (repo *homeworkRepository) CreateSubmission(ctx context.Context, sub homework.Submission) (homework.Submission, error) {
	sub.ID = uuid.New().String()

	query, args, err := psql.Insert("homework_submissions").
		Columns("id", "homework_id", "student_id", "content", "is_late", "submitted_at", "updated_at").
		Values(sub.ID, sub.HomeworkID, sub.StudentID, sub.Content, sub.IsLate, sub.SubmittedAt, sub.UpdatedAt).
		ToSql()
	if err != nil {
		return homework.Submission{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err, "homework_submissions_homework_id_student_id_key") {
			return homework.Submission{}, homework.ErrDuplicateSubmission
		}
		if isForeignKeyViolation(err) {
			return homework.Submission{}, homework.ErrNotFound
		}
		return homework.Submission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

func (repo *homeworkRepository) GetSubmissionByID(ctx context.Context, id string) (homework.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT "+submissionCols+` FROM homework_submissions hs
		LEFT JOIN grades g ON g.submission_id = hs.id
		WHERE hs.id = $1`, id)
	if err != nil {
		return homework.Submission{}, trapNoRowsErr(err, homework.ErrSubmissionNotFound, "finding submission by id")
	}
	return repo.hydrateSubmission(ctx, row.submission())
}

func (repo *homeworkRepository) GetStudentSubmission(ctx context.Context, homeworkID, studentID string) (homework.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT "+submissionCols+` FROM homework_submissions hs
		LEFT JOIN grades g ON g.submission_id = hs.id
		WHERE hs.homework_id = $1 AND hs.student_id = $2`, homeworkID, studentID)
	if err != nil {
		return homework.Submission{}, trapNoRowsErr(err, homework.ErrSubmissionNotFound, "finding student submission")
	}
	return row.submission(), nil
}

// hydrateSubmission attaches the student and the homework chain so callers
// can run authorization predicates against the snapshot.
func (repo *homeworkRepository) hydrateSubmission(ctx context.Context, sub homework.Submission) (homework.Submission, error) {
	var student userRow
	if err := repo.db.GetContext(ctx, &student, "SELECT * FROM users WHERE id = $1", sub.StudentID); err != nil {
		return homework.Submission{}, trapNoRowsErr(err, homework.ErrSubmissionNotFound, "finding submission student")
	}
	studentUsr := student.user()
	sub.Student = &studentUsr

	hw, err := getHomework(ctx, repo.db, sub.HomeworkID)
	if err != nil {
		return homework.Submission{}, err
	}
	sub.Homework = &hw
	return sub, nil
}

func (repo *homeworkRepository) FilterSubmissions(ctx context.Context, filter homework.SubmissionFilter, ordering ...core.DBOrdering) ([]homework.Submission, error) {
	q := psql.Select(submissionCols).
		From("homework_submissions hs").
		LeftJoin("grades g ON g.submission_id = hs.id")

	if filter.HomeworkID != "" {
		q = q.Where(sq.Eq{"hs.homework_id": filter.HomeworkID})
	}
	if filter.TeacherID != "" {
		q = q.Where(sq.Expr(
			`EXISTS (
				SELECT 1 FROM homework hw
				JOIN lectures l ON l.id = hw.lecture_id
				JOIN courses c ON c.id = l.course_id
				WHERE hw.id = hs.homework_id
				AND (c.owner_id = ? OR EXISTS (
					SELECT 1 FROM course_teachers ct WHERE ct.course_id = c.id AND ct.teacher_id = ?
				))
			)`, filter.TeacherID, filter.TeacherID))
	}
	if filter.StudentID != "" {
		q = q.Where(sq.Eq{"hs.student_id": filter.StudentID})
	}
	q = q.OrderBy(orderBy(ordering, submissionOrderings, "hs.submitted_at DESC"))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []submissionRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering submissions")
	}
	subs := make([]homework.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.submission())
	}
	return subs, nil
}

func (repo *homeworkRepository) CreateGrade(ctx context.Context, grd homework.Grade) (homework.Grade, error) {
	grd.ID = uuid.New().String()

	query, args, err := psql.Insert("grades").
		Columns("id", "submission_id", "points", "comments", "graded_by_id", "graded_at", "updated_at").
		Values(grd.ID, grd.SubmissionID, grd.Points, grd.Comments, grd.GradedByID, grd.GradedAt, grd.UpdatedAt).
		ToSql()
	if err != nil {
		return homework.Grade{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err, "grades_submission_id_key") {
			return homework.Grade{}, homework.ErrGradeExists
		}
		if isForeignKeyViolation(err) {
			return homework.Grade{}, homework.ErrSubmissionNotFound
		}
		return homework.Grade{}, errors.Wrap(err, "creating grade")
	}
	return grd, nil
}

func (repo *homeworkRepository) UpdateGrade(ctx context.Context, grd homework.Grade) (homework.Grade, error) {
	query, args, err := psql.Update("grades").
		Set("points", grd.Points).
		Set("comments", grd.Comments).
		Set("updated_at", grd.UpdatedAt).
		Where(sq.Eq{"id": grd.ID}).
		ToSql()
	if err != nil {
		return homework.Grade{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return homework.Grade{}, errors.Wrap(err, "updating grade")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return homework.Grade{}, homework.ErrGradeNotFound
	}
	return grd, nil
}
