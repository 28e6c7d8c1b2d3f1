// Package inmemdb implements the domain repositories in process memory.
// It backs the "memory" database engine and the service tests.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/catalog"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/submission"
	"github.com/trezcool/academia/core/user"
)

type (
	// DB holds every table behind a single lock, so that reads joining several tables are consistent.
	DB struct {
		mutex sync.RWMutex

		users       map[string]*user.User
		sections    map[string]*catalog.Section
		modules     map[string]*catalog.Module
		programs    map[string]*catalog.Program
		assignments map[string]*catalog.Assignment
		materials   map[string]*catalog.Material
		favorites   map[favoriteKey]*favorite

		enrollments  map[string]*enrollment.Enrollment
		submissions  map[string]*submission.Submission
		certificates map[string]*certificate.Certificate
		progress     map[string]*progress.MaterialProgress
	}

	favoriteKey struct {
		userID    string
		programID string
	}
)

func Open() *DB {
	return &DB{
		users:        make(map[string]*user.User),
		sections:     make(map[string]*catalog.Section),
		modules:      make(map[string]*catalog.Module),
		programs:     make(map[string]*catalog.Program),
		assignments:  make(map[string]*catalog.Assignment),
		materials:    make(map[string]*catalog.Material),
		favorites:    make(map[favoriteKey]*favorite),
		enrollments:  make(map[string]*enrollment.Enrollment),
		submissions:  make(map[string]*submission.Submission),
		certificates: make(map[string]*certificate.Certificate),
		progress:     make(map[string]*progress.MaterialProgress),
	}
}

func newID() string {
	return uuid.New().String()
}
