package homework_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

type fixture struct {
	svc     *homework.Service
	teacher user.User
	student user.User
	hw      homework.Homework
}

// newFixture stands up an in-memory backend with one course, one lecture and
// one homework assignment due at `dueDate`, taught by `teacher` with `student`
// enrolled.
func newFixture(t *testing.T, dueDate time.Time) fixture {
	t.Helper()
	ctx := context.Background()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	lecRepo := inmemdb.NewLectureRepository(db)
	svc := homework.NewService(inmemdb.NewHomeworkRepository(db))

	teacher := testutil.CreateUser(t, usrRepo, "Awa", "Traore", "awa@test.cd", user.RoleTeacher, "", true)
	student := testutil.CreateUser(t, usrRepo, "Ben", "Ilunga", "ben@test.cd", user.RoleStudent, "", true)
	crs := testutil.CreateCourse(t, crsRepo, "Algebra", teacher, true)
	if err = course.NewService(crsRepo).Enroll(ctx, crs, student); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}

	now := time.Now().UTC()
	lec, err := lecRepo.CreateLecture(ctx, lecture.Lecture{
		CourseID:    crs.ID,
		Topic:       "Linear equations",
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateLecture() failed: %v", err)
	}

	hw, err := svc.Create(ctx, homework.NewHomework{
		LectureID:   lec.ID,
		Title:       "Problem set 1",
		Description: "Solve for x",
		DueDate:     dueDate,
		MaxPoints:   100,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return fixture{svc: svc, teacher: teacher, student: student, hw: hw}
}

func TestServiceSubmit(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t, time.Now().UTC().Add(24*time.Hour))

	sub, err := fix.svc.Submit(ctx, fix.hw, fix.student, homework.NewSubmission{Content: "x = 4"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if sub.IsLate {
		t.Error("Submit() before the due date flagged the submission late")
	}
	if sub.Status() != homework.StatusSubmitted {
		t.Errorf("Status() = %q, want %q", sub.Status(), homework.StatusSubmitted)
	}
	if sub.Homework == nil || sub.Homework.Lecture == nil || sub.Homework.Lecture.Course == nil {
		t.Error("Submit() did not hydrate the homework chain")
	}

	if _, err = fix.svc.Submit(ctx, fix.hw, fix.student, homework.NewSubmission{Content: "x = 5"}); errors.Cause(err) != homework.ErrDuplicateSubmission {
		t.Errorf("Submit() twice: got %v, want ErrDuplicateSubmission", err)
	}
}

func TestServiceSubmitLate(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t, time.Now().UTC().Add(-time.Hour))

	sub, err := fix.svc.Submit(ctx, fix.hw, fix.student, homework.NewSubmission{Content: "x = 4"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if !sub.IsLate {
		t.Error("Submit() past the due date did not flag the submission late")
	}
}

func TestServiceGrade(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t, time.Now().UTC().Add(24*time.Hour))

	sub, err := fix.svc.Submit(ctx, fix.hw, fix.student, homework.NewSubmission{Content: "x = 4"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	// grading an ungraded submission cannot be updated
	if _, err = fix.svc.UpdateGrade(ctx, sub, homework.UpdateGrade{}); errors.Cause(err) != homework.ErrGradeNotFound {
		t.Errorf("UpdateGrade() before grading: got %v, want ErrGradeNotFound", err)
	}

	points := 85
	graded, err := fix.svc.Grade(ctx, sub, fix.teacher, homework.NewGrade{Points: &points, Comments: "good"})
	if err != nil {
		t.Fatalf("Grade() failed: %v", err)
	}
	if graded.Grade == nil {
		t.Fatal("Grade() did not attach the grade")
	}
	if graded.Status() != homework.StatusGraded {
		t.Errorf("Status() = %q, want %q", graded.Status(), homework.StatusGraded)
	}
	if graded.Grade.Points != points || graded.Grade.GradedByID != fix.teacher.ID {
		t.Errorf("Grade() = %+v, want %d points by %s", graded.Grade, points, fix.teacher.ID)
	}
	if letter := graded.Grade.Letter(); letter != "B" {
		t.Errorf("Letter() = %q, want B", letter)
	}

	// both with a fresh snapshot (in-service check) and a stale one
	// (storage constraint)
	if _, err = fix.svc.Grade(ctx, graded, fix.teacher, homework.NewGrade{Points: &points}); errors.Cause(err) != homework.ErrGradeExists {
		t.Errorf("Grade() twice: got %v, want ErrGradeExists", err)
	}
	if _, err = fix.svc.Grade(ctx, sub, fix.teacher, homework.NewGrade{Points: &points}); errors.Cause(err) != homework.ErrGradeExists {
		t.Errorf("Grade() twice via stale snapshot: got %v, want ErrGradeExists", err)
	}

	newPoints := 92
	updated, err := fix.svc.UpdateGrade(ctx, graded, homework.UpdateGrade{Points: &newPoints, Comments: "even better"})
	if err != nil {
		t.Fatalf("UpdateGrade() failed: %v", err)
	}
	if updated.Grade == nil || updated.Grade.Points != newPoints || updated.Grade.Comments != "even better" {
		t.Errorf("UpdateGrade() = %+v, want %d points", updated.Grade, newPoints)
	}
	if letter := updated.Grade.Letter(); letter != "A" {
		t.Errorf("Letter() = %q, want A", letter)
	}
}

func TestServiceQuerySubmissions(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t, time.Now().UTC().Add(24*time.Hour))

	sub, err := fix.svc.Submit(ctx, fix.hw, fix.student, homework.NewSubmission{Content: "x = 4"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	outsider := user.User{ID: "outsider-id", Role: user.RoleTeacher}
	tests := []struct {
		name   string
		viewer user.User
		want   int
	}{
		{name: "course teacher sees the submission", viewer: fix.teacher, want: 1},
		{name: "submission owner sees the submission", viewer: fix.student, want: 1},
		{name: "outside teacher sees nothing", viewer: outsider, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, err := fix.svc.QuerySubmissions(ctx, tt.viewer, nil)
			if err != nil {
				t.Fatalf("QuerySubmissions() failed: %v", err)
			}
			if len(subs) != tt.want {
				t.Fatalf("QuerySubmissions() returned %d submissions, want %d", len(subs), tt.want)
			}
			if tt.want == 1 && subs[0].ID != sub.ID {
				t.Errorf("QuerySubmissions() = %v, want id %s", subs, sub.ID)
			}
		})
	}
}
