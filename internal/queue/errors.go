package queue

import (
	"errors"

	"avatarstudio/internal/services"
)

// ErrTerminal is returned by Update when the job already reached a terminal
// state. Late stage results are discarded through this path.
var ErrTerminal = errors.New("job is terminal")

// ErrExists is returned by Create when the id is already registered.
var ErrExists = errors.New("job already exists")

func notFound(id string) error {
	return services.NotFound("job", id)
}
