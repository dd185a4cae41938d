package resources

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/oneconcern/rackham/pkg/resources/status"
	"go.uber.org/multierr"
)

// Policy describes how memory and CPUs are handed out on a cluster.
//
// All memory amounts are in megabytes.
type Policy struct {
	Cluster          string `mapstructure:"cluster" json:"cluster" yaml:"cluster"`
	DefaultPartition string `mapstructure:"defaultPartition" json:"defaultPartition" yaml:"defaultPartition"`

	// MemPerCPU is the memory that comes with each CPU on the core partition
	MemPerCPU int `mapstructure:"memPerCPU" json:"memPerCPU" yaml:"memPerCPU"`
	// MaxMem is the largest memory request the cluster can satisfy
	MaxMem int `mapstructure:"maxMem" json:"maxMem" yaml:"maxMem"`
	// MaxCPUs is the largest number of CPUs on a single node
	MaxCPUs int `mapstructure:"maxCPUs" json:"maxCPUs" yaml:"maxCPUs"`

	Core  CoreTier `mapstructure:"core" json:"core" yaml:"core"`
	Tiers []Tier   `mapstructure:"tiers" json:"tiers" yaml:"tiers"`
}

// CoreTier is the shared partition, where memory is allocated through CPUs.
type CoreTier struct {
	Partition string `mapstructure:"partition" json:"partition" yaml:"partition"`
	MaxMem    int    `mapstructure:"maxMem" json:"maxMem" yaml:"maxMem"`
}

// Tier is a class of whole nodes, selected with a constraint.
//
// A request lands in the first tier with MaxMem at or above the requested memory.
type Tier struct {
	Partition  string `mapstructure:"partition" json:"partition" yaml:"partition"`
	Constraint string `mapstructure:"constraint" json:"constraint,omitempty" yaml:"constraint,omitempty"`
	MaxMem     int    `mapstructure:"maxMem" json:"maxMem" yaml:"maxMem"`
	// Mem is the memory reserved for jobs in this tier
	Mem int `mapstructure:"mem" json:"mem" yaml:"mem"`
}

const (
	// PartitionCore is Rackham's shared partition
	PartitionCore = "core"

	// PartitionNode is Rackham's whole-node partition
	PartitionNode = "node"

	// ConstraintMem256GB selects nodes with 256GB of memory
	ConstraintMem256GB = "mem256GB"

	// ConstraintMem1TB selects nodes with 1TB of memory
	ConstraintMem1TB = "mem1TB"
)

// Rackham returns the policy of the Rackham cluster.
func Rackham() Policy {
	return Policy{
		Cluster:          "rackham",
		DefaultPartition: PartitionCore,
		MemPerCPU:        6400,
		MaxMem:           1000000,
		MaxCPUs:          20,
		Core: CoreTier{
			Partition: PartitionCore,
			MaxMem:    128000,
		},
		Tiers: []Tier{
			{Partition: PartitionNode, Constraint: ConstraintMem256GB, MaxMem: 256000, Mem: 256000},
			{Partition: PartitionNode, Constraint: ConstraintMem1TB, MaxMem: 1000000, Mem: 1000000},
		},
	}
}

// Validate reports all inconsistencies found in the policy at once.
func (p Policy) Validate() error {
	var errs []error
	if p.DefaultPartition == "" {
		errs = append(errs, fmt.Errorf("default partition is empty"))
	}
	if p.MemPerCPU <= 0 {
		errs = append(errs, fmt.Errorf("memPerCPU must be positive, got %d", p.MemPerCPU))
	}
	if p.MaxMem <= 0 {
		errs = append(errs, fmt.Errorf("maxMem must be positive, got %d", p.MaxMem))
	}
	if p.MaxCPUs < 1 {
		errs = append(errs, fmt.Errorf("maxCPUs must be at least 1, got %d", p.MaxCPUs))
	}
	if p.Core.Partition == "" {
		errs = append(errs, fmt.Errorf("core partition is empty"))
	}
	if p.Core.MaxMem <= 0 {
		errs = append(errs, fmt.Errorf("core maxMem must be positive, got %d", p.Core.MaxMem))
	}
	if len(p.Tiers) == 0 {
		errs = append(errs, fmt.Errorf("at least one node tier is required"))
	}

	prev := p.Core.MaxMem
	for i, t := range p.Tiers {
		if t.Partition == "" {
			errs = append(errs, fmt.Errorf("tier %d: partition is empty", i))
		}
		if t.MaxMem <= prev {
			errs = append(errs, fmt.Errorf("tier %d: maxMem %d must be above %d", i, t.MaxMem, prev))
		}
		if t.Mem <= 0 {
			errs = append(errs, fmt.Errorf("tier %d: mem must be positive, got %d", i, t.Mem))
		}
		prev = t.MaxMem
	}

	if err := multierr.Combine(errs...); err != nil {
		return status.ErrInvalidPolicy.Wrap(err)
	}
	return nil
}

// tierFor returns the node tier for some memory above the core ceiling.
// Memory beyond the last tier goes to the last tier.
func (p Policy) tierFor(mem int) Tier {
	for _, t := range p.Tiers {
		if mem <= t.MaxMem {
			return t
		}
	}
	return p.Tiers[len(p.Tiers)-1]
}

// MemDecodeHook lets configuration files express memory amounts as sbatch-style
// strings ("256G", "6400M"), decoded into megabytes.
//
// Plain numeric strings are decoded as-is, so the hook is harmless for other integer fields.
func MemDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Int {
			return data, nil
		}
		return ParseMem(data)
	}
}
