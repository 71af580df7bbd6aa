// Package inmemdb is a map-backed storage backend for tests and local
// development. It honors the same domain-error contract as the postgres
// backend, including the conflict errors normally raised by unique
// constraints.
package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
)

type (
	DB struct {
		user     *userTable
		course   *courseTable
		lecture  *lectureTable
		homework *homeworkTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table    map[string]*course.Course
		teachers map[string]map[string]bool // courseID -> co-teacher ids
		students map[string]map[string]bool // courseID -> student ids
	}

	lectureTable struct {
		sync.RWMutex
		table map[string]*lecture.Lecture
	}

	homeworkTable struct {
		sync.RWMutex
		table       map[string]*homework.Homework
		submissions map[string]*homework.Submission
		grades      map[string]*homework.Grade // keyed by submission id
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			table:    make(map[string]*course.Course),
			teachers: make(map[string]map[string]bool),
			students: make(map[string]map[string]bool),
		},
		lecture: &lectureTable{table: make(map[string]*lecture.Lecture)},
		homework: &homeworkTable{
			table:       make(map[string]*homework.Homework),
			submissions: make(map[string]*homework.Submission),
			grades:      make(map[string]*homework.Grade),
		},
	}
	return db, nil
}
