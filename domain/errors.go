package domain

// ValidationError reports a request missing a required field.
type ValidationError struct{ Message string }

func (e ValidationError) Error() string { return e.Message }

// NotFoundError reports a reference to an entity that does not exist.
type NotFoundError struct{ Message string }

func (e NotFoundError) Error() string { return e.Message }

// ConflictError reports a create that would break a uniqueness rule.
type ConflictError struct{ Message string }

func (e ConflictError) Error() string { return e.Message }

var (
	ErrTaskNotFound = NotFoundError{Message: "task not found"}
	ErrSlugTaken    = ConflictError{Message: "slug already exists"}
)
