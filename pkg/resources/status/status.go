// Package status exports errors produced by the resources package.
package status

import (
	"github.com/oneconcern/rackham/pkg/errors"
)

var (
	// ErrInvalidCPUs indicates that cpus-per-task could not be read as a positive integer
	ErrInvalidCPUs = errors.New("invalid cpus-per-task")

	// ErrInvalidMem indicates that mem could not be read as a non-negative amount of megabytes
	ErrInvalidMem = errors.New("invalid mem")

	// ErrInvalidField indicates a resource field of an unexpected type, e.g. a non-string partition
	ErrInvalidField = errors.New("invalid resource field")

	// ErrInvalidPolicy indicates an inconsistent cluster policy
	ErrInvalidPolicy = errors.New("invalid cluster policy")
)
