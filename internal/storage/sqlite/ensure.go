package sqlite

import (
	"github.com/felixgeelhaar/comprende/internal/jobs"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ jobs.SegmentStore  = (*SegmentStore)(nil)
	_ jobs.ExerciseStore = (*ExerciseStore)(nil)
	_ jobs.JobStore      = (*JobStore)(nil)
	_ jobs.AttemptStore  = (*AttemptStore)(nil)
)

// NewStores wires every SQLite store onto one database.
func NewStores(db *DB) jobs.Stores {
	return jobs.Stores{
		Segments:  NewSegmentStore(db),
		Exercises: NewExerciseStore(db),
		Jobs:      NewJobStore(db),
		Attempts:  NewAttemptStore(db),
	}
}
