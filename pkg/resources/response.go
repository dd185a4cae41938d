package resources

import (
	"strconv"
	"strings"
)

// ScriptCmdPrefix prefixes sbatch directives in a job script
const ScriptCmdPrefix = "#SBATCH"

// Response holds the adjusted resources.
//
// Mem is always 0: the scheduler then allocates all the memory that comes with the granted
// CPUs or node. Granted is the memory, in megabytes, this amounts to.
type Response struct {
	Partition   string       `json:"partition" yaml:"partition"`
	Constraint  string       `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	CPUs        int          `json:"cpus-per-task" yaml:"cpus-per-task"`
	Mem         int          `json:"mem" yaml:"mem"`
	Granted     int          `json:"-" yaml:"-"`
	Adjustments []Adjustment `json:"-" yaml:"-"`
}

// Map returns the resource map form of the response.
func (r Response) Map() map[string]interface{} {
	return r.Apply(make(map[string]interface{}, 4))
}

// Apply merges the response into a resource map and returns it.
//
// Keys other than the resource keys are left untouched. A constraint present in the map is
// removed when the response has none. A nil map is allocated.
func (r Response) Apply(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		args = make(map[string]interface{}, 4)
	}
	args[KeyPartition] = r.Partition
	if r.Constraint != "" {
		args[KeyConstraint] = r.Constraint
	} else {
		delete(args, KeyConstraint)
	}
	args[KeyCPUs] = r.CPUs
	args[KeyMem] = r.Mem
	return args
}

// Flags renders the response as sbatch long options.
func (r Response) Flags() []string {
	flags := make([]string, 0, 4)
	flags = append(flags, "--"+KeyPartition+"="+r.Partition)
	if r.Constraint != "" {
		flags = append(flags, "--"+KeyConstraint+"="+r.Constraint)
	}
	flags = append(flags,
		"--"+KeyCPUs+"="+strconv.Itoa(r.CPUs),
		"--"+KeyMem+"="+strconv.Itoa(r.Mem),
	)
	return flags
}

// Script renders the response as sbatch directives, one per line.
func (r Response) Script() string {
	var b strings.Builder
	for _, flag := range r.Flags() {
		b.WriteString(ScriptCmdPrefix)
		b.WriteString(" ")
		b.WriteString(flag)
		b.WriteString("\n")
	}
	return b.String()
}
