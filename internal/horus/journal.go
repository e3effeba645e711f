package horus

import "time"

// Operation is one command run against the project, as recorded in the
// local journal.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Journal records the operations a reviewer ran. It is local to one
// machine and plays no part in coordinating writers.
type Journal interface {
	CreateOperation(operation, parameters string) (*Operation, error)
	FinishOperation(id int64, status string) error
	ListOperations(limit int) ([]*Operation, error)
	CheckMigrations() error
	Close() error
}
