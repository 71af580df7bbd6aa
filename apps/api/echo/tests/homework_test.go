package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

// classroom is the standing cast of the homework and submission suites.
type classroom struct {
	owner     user.User
	coTeacher user.User
	student   user.User
	outsider  user.User
	crs       course.Course
	hw        homework.Homework
}

func newClassroom(t *testing.T, dueDate time.Time) classroom {
	t.Helper()

	owner := testutil.CreateUser(t, usrRepo, "Awa", "Traore", "awa@test.cd", user.RoleTeacher, "", true)
	coTeacher := testutil.CreateUser(t, usrRepo, "Carl", "Mbuyi", "carl@test.cd", user.RoleTeacher, "", true)
	student := testutil.CreateUser(t, usrRepo, "Ben", "Ilunga", "ben@test.cd", user.RoleStudent, "", true)
	outsider := testutil.CreateUser(t, usrRepo, "Zoe", "Amani", "zoe@test.cd", user.RoleStudent, "", true)

	crs := testutil.CreateCourse(t, crsRepo, "Algebra", owner, true)
	addCoTeacher(t, crs, coTeacher)
	enrollStudent(t, crs, student)

	lec := createLecture(t, crs.ID, "Linear equations")
	hw := createHomework(t, lec.ID, "Problem set 1", dueDate)
	return classroom{owner: owner, coTeacher: coTeacher, student: student, outsider: outsider, crs: crs, hw: hw}
}

func Test_homeworkApi_create(t *testing.T) {
	setup(t)
	room := newClassroom(t, time.Now().UTC().Add(24*time.Hour))

	payload := func(lectureID string) []byte {
		return marchallObj(t, homework.NewHomework{
			LectureID:   lectureID,
			Title:       "Problem set 2",
			Description: "Factor the polynomials",
			DueDate:     time.Now().UTC().Add(48 * time.Hour),
		})
	}

	tests := []httpTest{
		{name: "Auth required", body: payload(room.hw.LectureID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Teacher required", body: payload(room.hw.LectureID), token: getToken(t, room.student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "Unknown lecture", body: payload(unknownID), token: getToken(t, room.owner), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"lecture_id": "lecture not found"}),
		},
		{name: "Co-teacher creates", body: payload(room.hw.LectureID), token: getToken(t, room.coTeacher), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/homework", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusCreated {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
			}
			var hw homework.Homework
			if err := json.Unmarshal(rec.Body.Bytes(), &hw); err != nil {
				t.Fatalf("unmarshalling response failed: %v", err)
			}
			if hw.ID == "" || !hw.IsActive || hw.MaxPoints != 100 {
				t.Errorf("created homework missing defaults: %+v", hw)
			}
		})
	}
}

func Test_homeworkApi_retrieve(t *testing.T) {
	setup(t)
	room := newClassroom(t, time.Now().UTC().Add(24*time.Hour))

	snapshot := marchallObj(t, room.hw)

	tests := []httpTest{
		{name: "Owner", token: getToken(t, room.owner), wantCode: http.StatusOK, wantData: snapshot},
		{name: "Co-teacher", token: getToken(t, room.coTeacher), wantCode: http.StatusOK, wantData: snapshot},
		{name: "Enrolled student", token: getToken(t, room.student), wantCode: http.StatusOK, wantData: snapshot},
		{name: "Outsider gets 404", token: getToken(t, room.outsider), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/homework/"+room.hw.ID, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_homeworkApi_submit(t *testing.T) {
	setup(t)
	room := newClassroom(t, time.Now().UTC().Add(24*time.Hour))

	body := marchallObj(t, homework.NewSubmission{Content: "x = 4"})
	path := "/v1/homework/" + room.hw.ID + "/submit"

	t.Run("Teachers may not submit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, room.owner), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
	t.Run("Outsiders get 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, room.outsider), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})
	t.Run("Content is required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, room.student), marchallObj(t, struct{}{}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"content": "this field is required"}),
		}, rec)
	})
	t.Run("Student submits", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, room.student), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var sub homework.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		if sub.StudentID != room.student.ID || sub.IsLate || sub.Status() != homework.StatusSubmitted {
			t.Errorf("unexpected submission: %+v", sub)
		}
	})
	t.Run("Resubmitting conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, room.student), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, conflictErr{Error: "you have already submitted this homework", Code: "DUPLICATE_SUBMISSION"}),
		}, rec)
	})
}

func Test_homeworkApi_submitLate(t *testing.T) {
	setup(t)
	room := newClassroom(t, time.Now().UTC().Add(-time.Hour))

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/homework/"+room.hw.ID+"/submit",
		getToken(t, room.student), marchallObj(t, homework.NewSubmission{Content: "x = 4, sorry"}),
	)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var sub homework.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshalling response failed: %v", err)
	}
	if !sub.IsLate {
		t.Errorf("submission past the due date not flagged late: %+v", sub)
	}
}

func Test_homeworkApi_submissions(t *testing.T) {
	setup(t)
	room := newClassroom(t, time.Now().UTC().Add(24*time.Hour))

	sub := submitHomework(t, room.hw, room.student, "x = 4")
	bare := sub
	bare.Homework = nil
	bare.Student = nil

	tests := []httpTest{
		{name: "Teacher sees all", token: getToken(t, room.owner), wantCode: http.StatusOK, wantData: marchallList(t, bare)},
		{name: "Student sees their own", token: getToken(t, room.student), wantCode: http.StatusOK, wantData: marchallList(t, bare)},
		{name: "Outsiders get 404", token: getToken(t, room.outsider), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/homework/"+room.hw.ID+"/submissions", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
