package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/course"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/user"
)

type (
	// DB is an in-memory database shared by the in-memory repositories.
	DB struct {
		user        *userTable
		course      *courseTable
		certificate *certificateTable
		config      *configTable
	}

	userTable struct {
		table map[int64]*user.User
		pk    int64
		mutex sync.RWMutex
	}

	courseTable struct {
		overviews   map[string]course.Overview
		enrollments map[enrollmentKey]course.Enrollment
		mutex       sync.RWMutex
	}

	enrollmentKey struct {
		learnerID int64
		courseKey string
	}

	certificateTable struct {
		records       map[enrollmentKey]certificate.Record
		allowlist     map[enrollmentKey]certificate.AllowlistEntry
		invalidations []certificate.Invalidation
		mutex         sync.RWMutex
	}

	configTable struct {
		rows  []credentials.APIConfig
		mutex sync.RWMutex
	}
)

func NewDB() *DB {
	return &DB{
		user: &userTable{table: make(map[int64]*user.User)},
		course: &courseTable{
			overviews:   make(map[string]course.Overview),
			enrollments: make(map[enrollmentKey]course.Enrollment),
		},
		certificate: &certificateTable{
			records:   make(map[enrollmentKey]certificate.Record),
			allowlist: make(map[enrollmentKey]certificate.AllowlistEntry),
		},
		config: &configTable{},
	}
}
