// Package dummydb provides in-memory repositories for tests.
package dummydb

import (
	"sync"

	"github.com/hadirapp/hadir/core/attendee"
	"github.com/hadirapp/hadir/core/user"
)

type (
	DB struct {
		user     *userTable
		attendee *attendeeTable
		log      *logTable
	}

	// tables keep insertion order; scans walk them the way rows were stored.
	userTable struct {
		sync.RWMutex
		rows []*user.User
	}

	attendeeTable struct {
		sync.RWMutex
		rows []*attendee.Attendee
	}

	logTable struct {
		sync.RWMutex
		rows []*attendee.Log
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{},
		attendee: &attendeeTable{},
		log:      &logTable{},
	}
	return db, nil
}
