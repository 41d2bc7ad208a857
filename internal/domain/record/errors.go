package record

import "errors"

var (
	// ErrSeed is returned when the confirmed map cannot be built at startup.
	ErrSeed = errors.New("seed confirmed records")
	// ErrPersist matches a world record that could not be written to the store.
	ErrPersist = errors.New("persist world record")
)

// PersistError reports a failed history write of one level.
type PersistError struct {
	Level string
	Err   error
}

func (e *PersistError) Error() string {
	return ErrPersist.Error() + " " + e.Level + ": " + e.Err.Error()
}

// Unwrap matches both ErrPersist and the store error.
func (e *PersistError) Unwrap() []error {
	return []error{ErrPersist, e.Err}
}
