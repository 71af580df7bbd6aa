package testutil

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

// NewTestConfig returns a config suitable for tests: no external services,
// deterministic secrets.
func NewTestConfig() *core.Config {
	return &core.Config{
		AppName:                   "Darasa",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 "!!test-secret-key!!",
		FrontendBaseURL:           "http://localhost:8080",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			Host:                      "localhost",
			Port:                      "8000",
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			ShutdownTimeout:           5 * time.Second,
		},
	}
}

// NewTestLogger logs to stderr without reporting anywhere.
func NewTestLogger() core.Logger {
	return &testLogger{std: log.New(os.Stderr, "TEST : ", log.LstdFlags)}
}

type testLogger struct {
	std *log.Logger
}

func (l testLogger) Enable(bool) {}

func (l testLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l testLogger) Debug(msg string, args ...interface{}) { l.print(msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.print(msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.print(msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.print(msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.print(msg, args) }

func CreateUser(
	t *testing.T,
	repo user.Repository,
	firstName, lastName, email, role, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	title string,
	owner user.User,
	isActive bool,
) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Description: title + " description",
		OwnerID:     owner.ID,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}
