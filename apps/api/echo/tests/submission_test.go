package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_submissionApi_retrieve(t *testing.T) {
	setup(t)
	room := newClassroom(t, time.Now().UTC().Add(24*time.Hour))

	sub := submitHomework(t, room.hw, room.student, "x = 4")
	snapshot := marchallObj(t, sub)

	// visible to its owner and the course teachers only
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Owner teacher", token: getToken(t, room.owner), wantCode: http.StatusOK, wantData: snapshot},
		{name: "Co-teacher", token: getToken(t, room.coTeacher), wantCode: http.StatusOK, wantData: snapshot},
		{name: "Submitting student", token: getToken(t, room.student), wantCode: http.StatusOK, wantData: snapshot},
		{name: "Other student gets 404", token: getToken(t, room.outsider), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Unknown submission", token: getToken(t, room.owner), path: "/v1/submissions/" + unknownID, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for _, tt := range tests {
		if tt.path == "" {
			tt.path = "/v1/submissions/" + sub.ID
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_submissionApi_query(t *testing.T) {
	setup(t)
	room := newClassroom(t, time.Now().UTC().Add(24*time.Hour))

	sub := submitHomework(t, room.hw, room.student, "x = 4")
	bare := sub
	bare.Homework = nil
	bare.Student = nil

	tests := []httpTest{
		{name: "Teacher sees course submissions", token: getToken(t, room.owner), wantData: marchallList(t, bare)},
		{name: "Student sees their own", token: getToken(t, room.student), wantData: marchallList(t, bare)},
		{name: "Outsider sees nothing", token: getToken(t, room.outsider), wantData: marchallList(t)},
		{name: "Homework filter", path: fmt.Sprintf("/v1/submissions?homework_id=%s", unknownID), token: getToken(t, room.owner), wantData: marchallList(t)},
	}
	for _, tt := range tests {
		if tt.path == "" {
			tt.path = "/v1/submissions"
		}
		tt.wantCode = http.StatusOK
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_submissionApi_grade(t *testing.T) {
	setup(t)
	room := newClassroom(t, time.Now().UTC().Add(24*time.Hour))

	sub := submitHomework(t, room.hw, room.student, "x = 4")
	gradePath := "/v1/submissions/" + sub.ID + "/grade"
	updatePath := "/v1/submissions/" + sub.ID + "/update-grade"

	points := func(n int) []byte {
		return marchallObj(t, homework.NewGrade{Points: &n, Comments: "checked"})
	}

	t.Run("Student may not grade", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, gradePath, getToken(t, room.student), points(85))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
	t.Run("Points are bounded", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, gradePath, getToken(t, room.owner), points(101))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"points": "points must be 100 or less"}),
		}, rec)
	})
	t.Run("Updating before grading conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, updatePath, getToken(t, room.owner), points(85))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, conflictErr{Error: "this submission has not been graded yet", Code: "GRADE_NOT_FOUND"}),
		}, rec)
	})
	t.Run("Teacher grades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, gradePath, getToken(t, room.owner), points(85))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var got homework.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		if got.Grade == nil || got.Grade.Points != 85 || got.Grade.GradedByID != room.owner.ID {
			t.Fatalf("unexpected grade: %+v", got.Grade)
		}
		if got.Status() != homework.StatusGraded {
			t.Errorf("Status() = %q, want %q", got.Status(), homework.StatusGraded)
		}
		// the letter grade travels with the grade
		var wire struct {
			Grade struct {
				LetterGrade string `json:"letter_grade"`
			} `json:"grade"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &wire); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		if wire.Grade.LetterGrade != "B" {
			t.Errorf("letter_grade = %q, want B", wire.Grade.LetterGrade)
		}
	})
	t.Run("Regrading conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, gradePath, getToken(t, room.coTeacher), points(90))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, conflictErr{Error: "this submission has already been graded", Code: "GRADE_ALREADY_EXISTS"}),
		}, rec)
	})
	t.Run("Teacher updates the grade", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, updatePath, getToken(t, room.coTeacher), points(92))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got homework.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		if got.Grade == nil || got.Grade.Points != 92 {
			t.Errorf("unexpected grade: %+v", got.Grade)
		}
	})
}

// Test_api_gradingLifecycle walks the whole happy path through the HTTP
// surface: course and roster setup by teachers, enrollment, submission and
// grading, with each state machine rejecting its replays along the way.
func Test_api_gradingLifecycle(t *testing.T) {
	setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Awa", "Traore", "awa@test.cd", user.RoleTeacher, "", true)
	coTeacher := testutil.CreateUser(t, usrRepo, "Carl", "Mbuyi", "carl@test.cd", user.RoleTeacher, "", true)
	student := testutil.CreateUser(t, usrRepo, "Ben", "Ilunga", "ben@test.cd", user.RoleStudent, "", true)

	ownerToken := getToken(t, owner)
	coToken := getToken(t, coTeacher)
	studentToken := getToken(t, student)

	do := func(t *testing.T, method, path, token string, body []byte, wantCode int) []byte {
		t.Helper()
		req, rec := newAuthRequest(method, path, token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Fatalf("%s %s: code = %v; wantCode %v; data = %v", method, path, rec.Code, wantCode, rec.Body.String())
		}
		return rec.Body.Bytes()
	}

	// the owner opens a course and brings in a co-teacher
	var crs course.Course
	body := do(t, http.MethodPost, "/v1/courses", ownerToken,
		marchallObj(t, course.NewCourse{Title: "Algebra", Description: "Equations and such"}), http.StatusCreated)
	mustUnmarshal(t, body, &crs)
	do(t, http.MethodPost, "/v1/courses/"+crs.ID+"/add-teacher", ownerToken,
		marchallObj(t, course.MemberRequest{UserID: coTeacher.ID}), http.StatusOK)

	// the co-teacher sets up the material
	var lec lecture.Lecture
	body = do(t, http.MethodPost, "/v1/lectures", coToken,
		marchallObj(t, lecture.NewLecture{CourseID: crs.ID, Topic: "Linear equations", IsPublished: true}), http.StatusCreated)
	mustUnmarshal(t, body, &lec)

	var hw homework.Homework
	body = do(t, http.MethodPost, "/v1/homework", coToken,
		marchallObj(t, homework.NewHomework{
			LectureID:   lec.ID,
			Title:       "Problem set 1",
			Description: "Solve for x",
			DueDate:     time.Now().UTC().Add(24 * time.Hour),
		}), http.StatusCreated)
	mustUnmarshal(t, body, &hw)

	// the student cannot see the homework until they enroll
	do(t, http.MethodGet, "/v1/homework/"+hw.ID, studentToken, nil, http.StatusNotFound)
	do(t, http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", studentToken, nil, http.StatusOK)
	do(t, http.MethodGet, "/v1/homework/"+hw.ID, studentToken, nil, http.StatusOK)

	// one submission per student
	var sub homework.Submission
	body = do(t, http.MethodPost, "/v1/homework/"+hw.ID+"/submit", studentToken,
		marchallObj(t, homework.NewSubmission{Content: "x = 4"}), http.StatusCreated)
	mustUnmarshal(t, body, &sub)
	body = do(t, http.MethodPost, "/v1/homework/"+hw.ID+"/submit", studentToken,
		marchallObj(t, homework.NewSubmission{Content: "x = 5"}), http.StatusBadRequest)
	wantConflict(t, body, "DUPLICATE_SUBMISSION")

	// one grade per submission; corrections go through update
	pts := 85
	body = do(t, http.MethodPost, "/v1/submissions/"+sub.ID+"/grade", ownerToken,
		marchallObj(t, homework.NewGrade{Points: &pts, Comments: "good"}), http.StatusCreated)
	mustUnmarshal(t, body, &sub)
	if sub.Status() != homework.StatusGraded {
		t.Fatalf("Status() = %q, want %q", sub.Status(), homework.StatusGraded)
	}

	body = do(t, http.MethodPost, "/v1/submissions/"+sub.ID+"/grade", coToken,
		marchallObj(t, homework.NewGrade{Points: &pts}), http.StatusBadRequest)
	wantConflict(t, body, "GRADE_ALREADY_EXISTS")

	pts = 92
	body = do(t, http.MethodPut, "/v1/submissions/"+sub.ID+"/update-grade", coToken,
		marchallObj(t, homework.UpdateGrade{Points: &pts}), http.StatusOK)
	mustUnmarshal(t, body, &sub)
	if sub.Grade == nil || sub.Grade.Points != 92 {
		t.Fatalf("unexpected grade after update: %+v", sub.Grade)
	}

	// the student sees the outcome
	body = do(t, http.MethodGet, "/v1/submissions/"+sub.ID, studentToken, nil, http.StatusOK)
	mustUnmarshal(t, body, &sub)
	if sub.Grade == nil || sub.Grade.Points != 92 {
		t.Errorf("student view misses the grade: %+v", sub.Grade)
	}
}

func mustUnmarshal(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshalling response failed: %v", err)
	}
}

func wantConflict(t *testing.T, data []byte, code string) {
	t.Helper()
	var ce conflictErr
	mustUnmarshal(t, data, &ce)
	if ce.Code != code {
		t.Fatalf("conflict code = %q, want %q (body %s)", ce.Code, code, data)
	}
}
