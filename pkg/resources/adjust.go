package resources

import (
	"fmt"
	"math"
	"strconv"

	units "github.com/docker/go-units"
	"github.com/oneconcern/rackham/pkg/resources/status"
	"go.uber.org/zap"
)

// AdjustmentKind names a corrective action
type AdjustmentKind string

const (
	// MemCapped means the memory request exceeded what the cluster can offer
	MemCapped AdjustmentKind = "mem-capped"

	// CPUsRaised means more CPUs were requested to cover the memory on the core partition
	CPUsRaised AdjustmentKind = "cpus-raised"

	// TierSelected means the job was sent to a class of whole nodes
	TierSelected AdjustmentKind = "tier-selected"

	// CPUsCapped means the CPU request exceeded the CPUs of a single node
	CPUsCapped AdjustmentKind = "cpus-capped"

	// ConstraintDropped means a constraint was removed because the job fits on the core partition
	ConstraintDropped AdjustmentKind = "constraint-dropped"
)

// Adjustment records a correction made to a request.
type Adjustment struct {
	Kind    AdjustmentKind `json:"kind" yaml:"kind"`
	From    string         `json:"from" yaml:"from"`
	To      string         `json:"to" yaml:"to"`
	Message string         `json:"message" yaml:"message"`
}

// Adjust maps a request onto the partitions of the cluster.
//
// Requests that are too large are capped rather than rejected. An error is returned only
// when the request holds a negative amount of memory, less than one CPU, or when the policy
// is inconsistent.
func Adjust(req Request, opts ...Option) (Response, error) {
	s := newSettings(opts...)
	if err := s.policy.Validate(); err != nil {
		return Response{}, err
	}
	return s.adjust(req)
}

// AdjustMap parses a resource map, adjusts it and merges the result back into the same map,
// which is returned.
func AdjustMap(args map[string]interface{}, opts ...Option) (map[string]interface{}, error) {
	req, err := ParseRequest(args)
	if err != nil {
		return args, err
	}
	resp, err := Adjust(req, opts...)
	if err != nil {
		return args, err
	}
	return resp.Apply(args), nil
}

func (s settings) adjust(req Request) (Response, error) {
	p := s.policy
	l := s.logger.With(zap.String("cluster", p.Cluster))

	partition := p.DefaultPartition
	if req.Partition != nil {
		partition = *req.Partition
	}
	var constraint string
	if req.Constraint != nil {
		constraint = *req.Constraint
	}
	ncpus := 1
	if req.CPUs != nil {
		if *req.CPUs < 1 {
			return Response{}, status.ErrInvalidCPUs.WrapWithLog(l,
				fmt.Errorf("at least 1 CPU is required, got %d", *req.CPUs), zap.Stringer("request", req))
		}
		ncpus = *req.CPUs
	}
	mem := math.MaxInt
	if ncpus <= math.MaxInt/p.MemPerCPU {
		mem = p.MemPerCPU * ncpus
	}
	if req.Mem != nil {
		if *req.Mem < 0 {
			return Response{}, status.ErrInvalidMem.WrapWithLog(l,
				fmt.Errorf("memory cannot be negative, got %dMB", *req.Mem), zap.Stringer("request", req))
		}
		mem = *req.Mem
	}
	l.Debug("adjusting resources",
		zap.Stringer("request", req),
		zap.String(KeyPartition, partition),
		zap.Int(KeyCPUs, ncpus),
		zap.Int(KeyMem, mem),
	)

	var adjustments []Adjustment
	note := func(a Adjustment) {
		adjustments = append(adjustments, a)
		fields := []zap.Field{zap.String("adjustment", string(a.Kind)), zap.String("from", a.From), zap.String("to", a.To)}
		switch a.Kind {
		case MemCapped, CPUsCapped:
			l.Warn(a.Message, fields...)
		default:
			l.Info(a.Message, fields...)
		}
	}

	if mem > p.MaxMem {
		note(Adjustment{
			Kind: MemCapped,
			From: strconv.Itoa(mem),
			To:   strconv.Itoa(p.MaxMem),
			Message: fmt.Sprintf(
				"WARNING: Requested memory (%dMB) exceeds maximum possible on %s. Capping memory to %dMB. "+
					"If this was an erroneous resource allocation and your job needs considerably less memory, "+
					"please edit the rule resources to more appropriate values.",
				mem, p.Cluster, p.MaxMem),
		})
		mem = p.MaxMem
	}

	onCore := mem <= p.Core.MaxMem
	if onCore {
		partition = p.Core.Partition
		if constraint != "" {
			note(Adjustment{
				Kind:    ConstraintDropped,
				From:    constraint,
				Message: fmt.Sprintf("NOTE: Job fits on the %s partition, dropping constraint %q.", partition, constraint),
			})
			constraint = ""
		}
		if raised := (mem + p.MemPerCPU - 1) / p.MemPerCPU; raised > ncpus {
			note(Adjustment{
				Kind: CPUsRaised,
				From: strconv.Itoa(ncpus),
				To:   strconv.Itoa(raised),
				Message: fmt.Sprintf(
					"NOTE: Memory (%dMB) exceeds allotment given by %s for requested threads (%dMB/CPU). "+
						"Increasing CPU request to reserve requested memory.",
					mem, p.Cluster, p.MemPerCPU),
			})
			ncpus = raised
		}
		if ncpus <= p.MaxCPUs {
			mem = ncpus * p.MemPerCPU
		}
	} else {
		tier := p.tierFor(mem)
		note(Adjustment{
			Kind: TierSelected,
			From: strconv.Itoa(mem),
			To:   tier.Partition + "/" + tier.Constraint,
			Message: fmt.Sprintf(
				"NOTE: Job will use %dMB of memory, constraining to nodes with %s of memory.",
				mem, units.HumanSize(float64(tier.Mem)*units.MB)),
		})
		partition = tier.Partition
		constraint = tier.Constraint
		mem = tier.Mem
	}

	if ncpus > p.MaxCPUs {
		note(Adjustment{
			Kind: CPUsCapped,
			From: strconv.Itoa(ncpus),
			To:   strconv.Itoa(p.MaxCPUs),
			Message: fmt.Sprintf(
				"WARNING: Greater than %d threads requested, capping at %d. "+
					"%s does not permit more cores in a shared memory process; larger jobs should run as MPI jobs.",
				p.MaxCPUs, p.MaxCPUs, p.Cluster),
		})
		ncpus = p.MaxCPUs
		if onCore {
			mem = ncpus * p.MemPerCPU
		}
	}

	return Response{
		Partition:   partition,
		Constraint:  constraint,
		CPUs:        ncpus,
		Mem:         0,
		Granted:     mem,
		Adjustments: adjustments,
	}, nil
}
