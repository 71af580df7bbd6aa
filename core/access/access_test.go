package access

import (
	"testing"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
)

var (
	owner     = user.User{ID: "owner-id", Role: user.RoleTeacher}
	coTeacher = user.User{ID: "coteacher-id", Role: user.RoleTeacher}
	outsider  = user.User{ID: "outsider-id", Role: user.RoleTeacher}
	student   = user.User{ID: "student-id", Role: user.RoleStudent}
	stranger  = user.User{ID: "stranger-id", Role: user.RoleStudent}

	crs = course.Course{
		ID:         "course-id",
		OwnerID:    owner.ID,
		TeacherIDs: []string{coTeacher.ID},
		StudentIDs: []string{student.ID},
	}
	lec = lecture.Lecture{ID: "lecture-id", CourseID: crs.ID, Course: &crs}
	hw  = homework.Homework{ID: "homework-id", LectureID: lec.ID, Lecture: &lec}
	sub = homework.Submission{ID: "submission-id", HomeworkID: hw.ID, StudentID: student.ID, Homework: &hw}
)

func TestCoursePredicates(t *testing.T) {
	tests := []struct {
		name      string
		usr       user.User
		isOwner   bool
		isTeacher bool
		isStudent bool
		canAccess bool
	}{
		{name: "owner", usr: owner, isOwner: true, isTeacher: true, canAccess: true},
		{name: "co-teacher", usr: coTeacher, isTeacher: true, canAccess: true},
		{name: "outside teacher", usr: outsider},
		{name: "enrolled student", usr: student, isStudent: true, canAccess: true},
		{name: "unenrolled student", usr: stranger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCourseOwner(tt.usr, crs); got != tt.isOwner {
				t.Errorf("IsCourseOwner() = %v, want %v", got, tt.isOwner)
			}
			if got := IsCourseTeacher(tt.usr, crs); got != tt.isTeacher {
				t.Errorf("IsCourseTeacher() = %v, want %v", got, tt.isTeacher)
			}
			if got := IsCourseStudent(tt.usr, crs); got != tt.isStudent {
				t.Errorf("IsCourseStudent() = %v, want %v", got, tt.isStudent)
			}
			if got := CanAccessCourse(tt.usr, crs); got != tt.canAccess {
				t.Errorf("CanAccessCourse() = %v, want %v", got, tt.canAccess)
			}
		})
	}
}

// a student in the member set but with a teacher role (or vice versa) exercises
// the role half of the membership predicates
func TestPredicatesRequireRole(t *testing.T) {
	teacherInStudentSet := user.User{ID: student.ID, Role: user.RoleTeacher}
	if IsCourseStudent(teacherInStudentSet, crs) {
		t.Error("IsCourseStudent() accepted a teacher-role user")
	}
	if IsSubmissionOwner(teacherInStudentSet, sub) {
		t.Error("IsSubmissionOwner() accepted a teacher-role user")
	}
}

func TestLecturePredicates(t *testing.T) {
	tests := []struct {
		name      string
		usr       user.User
		isTeacher bool
		canAccess bool
	}{
		{name: "owner", usr: owner, isTeacher: true, canAccess: true},
		{name: "co-teacher", usr: coTeacher, isTeacher: true, canAccess: true},
		{name: "outside teacher", usr: outsider},
		{name: "enrolled student", usr: student, canAccess: true},
		{name: "unenrolled student", usr: stranger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLectureTeacher(tt.usr, lec); got != tt.isTeacher {
				t.Errorf("IsLectureTeacher() = %v, want %v", got, tt.isTeacher)
			}
			if got := CanAccessLecture(tt.usr, lec); got != tt.canAccess {
				t.Errorf("CanAccessLecture() = %v, want %v", got, tt.canAccess)
			}
		})
	}

	// a lecture without its course snapshot denies everything
	bare := lecture.Lecture{ID: "bare", CourseID: crs.ID}
	if CanAccessLecture(owner, bare) || IsLectureTeacher(owner, bare) {
		t.Error("predicates accepted a lecture without a hydrated course")
	}
}

func TestHomeworkPredicates(t *testing.T) {
	tests := []struct {
		name      string
		usr       user.User
		isTeacher bool
		isStudent bool
		canAccess bool
	}{
		{name: "owner", usr: owner, isTeacher: true, canAccess: true},
		{name: "co-teacher", usr: coTeacher, isTeacher: true, canAccess: true},
		{name: "outside teacher", usr: outsider},
		{name: "enrolled student", usr: student, isStudent: true, canAccess: true},
		{name: "unenrolled student", usr: stranger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHomeworkTeacher(tt.usr, hw); got != tt.isTeacher {
				t.Errorf("IsHomeworkTeacher() = %v, want %v", got, tt.isTeacher)
			}
			if got := IsHomeworkStudent(tt.usr, hw); got != tt.isStudent {
				t.Errorf("IsHomeworkStudent() = %v, want %v", got, tt.isStudent)
			}
			if got := CanAccessHomework(tt.usr, hw); got != tt.canAccess {
				t.Errorf("CanAccessHomework() = %v, want %v", got, tt.canAccess)
			}
		})
	}
}

func TestSubmissionPredicates(t *testing.T) {
	tests := []struct {
		name      string
		usr       user.User
		isOwner   bool
		isTeacher bool
		canAccess bool
	}{
		{name: "submission owner", usr: student, isOwner: true, canAccess: true},
		{name: "course owner", usr: owner, isTeacher: true, canAccess: true},
		{name: "co-teacher", usr: coTeacher, isTeacher: true, canAccess: true},
		{name: "outside teacher", usr: outsider},
		{name: "other student", usr: stranger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSubmissionOwner(tt.usr, sub); got != tt.isOwner {
				t.Errorf("IsSubmissionOwner() = %v, want %v", got, tt.isOwner)
			}
			if got := IsSubmissionTeacher(tt.usr, sub); got != tt.isTeacher {
				t.Errorf("IsSubmissionTeacher() = %v, want %v", got, tt.isTeacher)
			}
			if got := CanAccessSubmission(tt.usr, sub); got != tt.canAccess {
				t.Errorf("CanAccessSubmission() = %v, want %v", got, tt.canAccess)
			}
		})
	}
}
