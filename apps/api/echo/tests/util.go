package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/darasahq/darasa/apps/api/echo"
	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

var (
	conf *core.Config
	app  Server

	usrRepo user.Repository
	crsRepo course.Repository
	lecRepo lecture.Repository
	hwRepo  homework.Repository

	usrSvc *user.Service
	crsSvc *course.Service
	lecSvc *lecture.Service
	hwSvc  *homework.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errNotFound     = httpErr{Error: "not found"}
	errForbidden    = httpErr{Error: "permission denied"}
)

// setup stands up a fresh in-memory backend and a test server around it.
func setup(t *testing.T) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	usrRepo = inmemdb.NewUserRepository(db)
	crsRepo = inmemdb.NewCourseRepository(db)
	lecRepo = inmemdb.NewLectureRepository(db)
	hwRepo = inmemdb.NewHomeworkRepository(db)

	conf = testutil.NewTestConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	emailsvc.ClearSentMessages()

	usrSvc = user.NewService(usrRepo, mailSvc, conf)
	crsSvc = course.NewService(crsRepo)
	lecSvc = lecture.NewService(lecRepo)
	hwSvc = homework.NewService(hwRepo)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator, user.RoleValidation)

	app = NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Conf:        conf,
			Logger:      testutil.NewTestLogger(),
			Validate:    validate,
			Translator:  translator,
			UserSvc:     usrSvc,
			CourseSvc:   crsSvc,
			LectureSvc:  lecSvc,
			HomeworkSvc: hwSvc,
		},
	)
}

func newTranslator() ut.Translator {
	lang := en.New()
	uni := ut.New(lang, lang)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type (
	httpErr struct {
		Error string `json:"error"`
	}

	// conflictErr mirrors the wire shape of business-rule conflicts.
	conflictErr struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}

	httpTest struct {
		name     string
		method   string
		path     string
		body     []byte
		token    string
		wantCode int
		wantData []byte
		extra    interface{}
	}
)

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// fixture helpers; they go through the services so state machines apply.

func createLecture(t *testing.T, courseID, topic string) lecture.Lecture {
	t.Helper()

	lec, err := lecSvc.Create(context.Background(), lecture.NewLecture{
		CourseID:    courseID,
		Topic:       topic,
		Description: topic + " description",
		IsPublished: true,
	})
	if err != nil {
		t.Fatalf("createLecture() failed: %v", err)
	}
	return lec
}

func createHomework(t *testing.T, lectureID, title string, dueDate time.Time) homework.Homework {
	t.Helper()

	hw, err := hwSvc.Create(context.Background(), homework.NewHomework{
		LectureID:   lectureID,
		Title:       title,
		Description: title + " description",
		DueDate:     dueDate,
		MaxPoints:   100,
	})
	if err != nil {
		t.Fatalf("createHomework() failed: %v", err)
	}
	return hw
}

func submitHomework(t *testing.T, hw homework.Homework, student user.User, content string) homework.Submission {
	t.Helper()

	sub, err := hwSvc.Submit(context.Background(), hw, student, homework.NewSubmission{Content: content})
	if err != nil {
		t.Fatalf("submitHomework() failed: %v", err)
	}
	return sub
}

func enrollStudent(t *testing.T, crs course.Course, student user.User) {
	t.Helper()

	if err := crsSvc.Enroll(context.Background(), crs, student); err != nil {
		t.Fatalf("enrollStudent() failed: %v", err)
	}
}

func addCoTeacher(t *testing.T, crs course.Course, teacher user.User) {
	t.Helper()

	if err := crsSvc.AddTeacher(context.Background(), crs, teacher); err != nil {
		t.Fatalf("addCoTeacher() failed: %v", err)
	}
}
