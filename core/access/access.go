// Package access holds the authorization predicates: pure, total functions
// of (user, resource) snapshots deciding whether an action is permitted.
// They never touch storage and never mutate state; every endpoint consults
// this one rule set instead of re-deriving membership checks locally.
package access

import (
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
)

// IsTeacher reports whether the user holds the teacher role.
func IsTeacher(usr user.User) bool { return usr.IsTeacher() }

// IsStudent reports whether the user holds the student role.
func IsStudent(usr user.User) bool { return usr.IsStudent() }

// IsCourseOwner reports whether the user is the course's primary teacher.
// Co-teachers are excluded: ownership gates course update and delete.
func IsCourseOwner(usr user.User, crs course.Course) bool {
	return usr.ID == crs.OwnerID
}

// IsCourseTeacher reports whether the user is the course's primary teacher
// or a member of its co-teacher set.
func IsCourseTeacher(usr user.User, crs course.Course) bool {
	return usr.ID == crs.OwnerID || crs.HasCoTeacher(usr.ID)
}

// IsCourseStudent reports whether the user is a student-role member of the
// course's student set.
func IsCourseStudent(usr user.User, crs course.Course) bool {
	return usr.IsStudent() && crs.HasStudent(usr.ID)
}

// CanAccessCourse governs read access to the course and everything nested
// under it (lectures, homework).
func CanAccessCourse(usr user.User, crs course.Course) bool {
	return IsCourseTeacher(usr, crs) || IsCourseStudent(usr, crs)
}

// IsLectureTeacher reports whether the user teaches the lecture's course.
func IsLectureTeacher(usr user.User, lec lecture.Lecture) bool {
	return lec.Course != nil && IsCourseTeacher(usr, *lec.Course)
}

// CanAccessLecture governs read access to a lecture.
func CanAccessLecture(usr user.User, lec lecture.Lecture) bool {
	return lec.Course != nil && CanAccessCourse(usr, *lec.Course)
}

// IsHomeworkTeacher reports whether the user teaches the course owning the
// homework's lecture.
func IsHomeworkTeacher(usr user.User, hw homework.Homework) bool {
	return hw.Lecture != nil && IsLectureTeacher(usr, *hw.Lecture)
}

// IsHomeworkStudent reports whether the user is a student enrolled in the
// course owning the homework's lecture.
func IsHomeworkStudent(usr user.User, hw homework.Homework) bool {
	return hw.Lecture != nil && hw.Lecture.Course != nil && IsCourseStudent(usr, *hw.Lecture.Course)
}

// CanAccessHomework governs read access to a homework assignment.
func CanAccessHomework(usr user.User, hw homework.Homework) bool {
	return hw.Lecture != nil && CanAccessLecture(usr, *hw.Lecture)
}

// IsSubmissionOwner reports whether the user is the student who made the
// submission.
func IsSubmissionOwner(usr user.User, sub homework.Submission) bool {
	return usr.IsStudent() && usr.ID == sub.StudentID
}

// IsSubmissionTeacher reports whether the user teaches the course the
// submission's homework belongs to.
func IsSubmissionTeacher(usr user.User, sub homework.Submission) bool {
	return sub.Homework != nil && IsHomeworkTeacher(usr, *sub.Homework)
}

// CanAccessSubmission governs read access to a submission: its owner and the
// teachers of the owning course.
func CanAccessSubmission(usr user.User, sub homework.Submission) bool {
	return IsSubmissionOwner(usr, sub) || IsSubmissionTeacher(usr, sub)
}
