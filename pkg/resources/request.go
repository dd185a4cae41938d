package resources

import (
	"fmt"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
	"github.com/go-viper/mapstructure/v2"
	"github.com/oneconcern/rackham/pkg/resources/status"
	"github.com/spf13/cast"
)

// Keys of the resource map, named after the sbatch options they end up as.
const (
	KeyPartition  = "partition"
	KeyConstraint = "constraint"
	KeyCPUs       = "cpus-per-task"
	KeyMem        = "mem"
)

// Request holds the resources asked for by a job. Nil fields were not supplied.
type Request struct {
	Partition  *string
	Constraint *string
	CPUs       *int
	// Mem in megabytes
	Mem *int
}

// rawRequest is the untyped view of a resource map
type rawRequest struct {
	Partition  interface{} `mapstructure:"partition"`
	Constraint interface{} `mapstructure:"constraint"`
	CPUs       interface{} `mapstructure:"cpus-per-task"`
	Mem        interface{} `mapstructure:"mem"`
}

// ParseRequest reads a resource map as handed over by a workflow engine.
//
// cpus-per-task and mem may be integers, floats (truncated) or numeric strings.
// mem may also carry an sbatch unit suffix, e.g. "200G". Other keys are ignored.
// Keys with a nil value count as not supplied.
func ParseRequest(args map[string]interface{}) (Request, error) {
	var (
		raw rawRequest
		req Request
	)
	if err := mapstructure.Decode(args, &raw); err != nil {
		return req, status.ErrInvalidField.Wrap(err)
	}

	if raw.Partition != nil {
		partition, ok := raw.Partition.(string)
		if !ok {
			return req, status.ErrInvalidField.Wrap(fmt.Errorf("%s: expected a string, got %T", KeyPartition, raw.Partition))
		}
		req.Partition = &partition
	}

	if raw.Constraint != nil {
		constraint, ok := raw.Constraint.(string)
		if !ok {
			return req, status.ErrInvalidField.Wrap(fmt.Errorf("%s: expected a string, got %T", KeyConstraint, raw.Constraint))
		}
		req.Constraint = &constraint
	}

	if raw.CPUs != nil {
		cpus, err := ParseCPUs(raw.CPUs)
		if err != nil {
			return req, err
		}
		req.CPUs = &cpus
	}

	if raw.Mem != nil {
		mem, err := ParseMem(raw.Mem)
		if err != nil {
			return req, err
		}
		req.Mem = &mem
	}

	return req, nil
}

// ParseCPUs coerces a cpus-per-task value to an integer.
func ParseCPUs(v interface{}) (int, error) {
	cpus, err := toInt(v)
	if err != nil {
		return 0, status.ErrInvalidCPUs.Wrap(err)
	}
	return cpus, nil
}

// ParseMem coerces a mem value to megabytes.
//
// Numbers are megabytes already. Strings with a unit (K, M, G, T or P, optionally followed
// by "iB" or "B") are read with binary multiples, as sbatch does, and rounded up to the next
// megabyte. Strings without a unit must be whole numbers.
func ParseMem(v interface{}) (int, error) {
	mem, err := toInt(v)
	if err == nil {
		return mem, nil
	}
	str, isString := v.(string)
	if !isString {
		return 0, status.ErrInvalidMem.Wrap(err)
	}
	str = strings.TrimSpace(str)
	if !hasMemUnit(str) {
		return 0, status.ErrInvalidMem.Wrap(fmt.Errorf("%q is neither a whole number of megabytes nor a size with a unit", str))
	}
	bytes, err := units.RAMInBytes(str)
	if err != nil {
		return 0, status.ErrInvalidMem.Wrap(err)
	}
	return int((bytes + units.MiB - 1) / units.MiB), nil
}

// hasMemUnit tells if a size ends with a unit. A bare "B" is not one: RAMInBytes would read
// the number as bytes.
func hasMemUnit(str string) bool {
	str = strings.TrimSuffix(strings.TrimSuffix(str, "b"), "B")
	str = strings.TrimSuffix(strings.TrimSuffix(str, "i"), "I")
	if str == "" {
		return false
	}
	return strings.ContainsRune("kKmMgGtTpP", rune(str[len(str)-1]))
}

func toInt(v interface{}) (int, error) {
	if str, ok := v.(string); ok {
		// cast would read "010" as octal
		return strconv.Atoi(strings.TrimSpace(str))
	}
	return cast.ToIntE(v)
}

// String renders the request for log messages.
func (r Request) String() string {
	var b strings.Builder
	b.WriteString("{")
	sep := ""
	write := func(key, value string) {
		b.WriteString(sep)
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		sep = ", "
	}
	if r.Partition != nil {
		write(KeyPartition, *r.Partition)
	}
	if r.Constraint != nil {
		write(KeyConstraint, *r.Constraint)
	}
	if r.CPUs != nil {
		write(KeyCPUs, strconv.Itoa(*r.CPUs))
	}
	if r.Mem != nil {
		write(KeyMem, strconv.Itoa(*r.Mem))
	}
	b.WriteString("}")
	return b.String()
}
