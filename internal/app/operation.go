package app

// Operation outcomes recorded in the journal.
const (
	OperationSuccess = "success"
	OperationError   = "error"
)

// ReviewOperation tracks the CLI command being run. It lives in memory with
// ID=0 until a command that changes the project persists it to the journal.
type ReviewOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
}

func NewReviewOperation(operation, parameters string) *ReviewOperation {
	return &ReviewOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     OperationSuccess,
	}
}

// Persisted returns true if this operation has been saved to the journal.
func (op *ReviewOperation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as failed when err is non-nil and returns err.
func (op *ReviewOperation) Fail(err error) error {
	if err != nil {
		op.Status = OperationError
	}
	return err
}
