package resources

import (
	"testing"

	"github.com/oneconcern/rackham/pkg/errors"
	"github.com/oneconcern/rackham/pkg/resources/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func kinds(r Response) []AdjustmentKind {
	out := make([]AdjustmentKind, 0, len(r.Adjustments))
	for _, a := range r.Adjustments {
		out = append(out, a.Kind)
	}
	return out
}

func TestAdjustMapScenarios(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    map[string]interface{}
		expected map[string]interface{}
		kinds    []AdjustmentKind
	}{
		{
			name:     "defaults",
			input:    map[string]interface{}{KeyCPUs: 1},
			expected: map[string]interface{}{KeyPartition: "core", KeyCPUs: 1, KeyMem: 0},
			kinds:    []AdjustmentKind{},
		},
		{
			name:     "256GB node",
			input:    map[string]interface{}{KeyMem: 200000, KeyCPUs: 2},
			expected: map[string]interface{}{KeyPartition: "node", KeyConstraint: "mem256GB", KeyCPUs: 2, KeyMem: 0},
			kinds:    []AdjustmentKind{TierSelected},
		},
		{
			name:     "1TB node",
			input:    map[string]interface{}{KeyMem: 500000},
			expected: map[string]interface{}{KeyPartition: "node", KeyConstraint: "mem1TB", KeyCPUs: 1, KeyMem: 0},
			kinds:    []AdjustmentKind{TierSelected},
		},
		{
			name:     "cpus raised to cover memory",
			input:    map[string]interface{}{KeyMem: 100000, KeyCPUs: 2},
			expected: map[string]interface{}{KeyPartition: "core", KeyCPUs: 16, KeyMem: 0},
			kinds:    []AdjustmentKind{CPUsRaised},
		},
		{
			name:     "memory capped",
			input:    map[string]interface{}{KeyMem: 2000000},
			expected: map[string]interface{}{KeyPartition: "node", KeyConstraint: "mem1TB", KeyCPUs: 1, KeyMem: 0},
			kinds:    []AdjustmentKind{MemCapped, TierSelected},
		},
		{
			// 30 CPUs default to 192000MB, which needs a 256GB node
			name:     "cpus capped",
			input:    map[string]interface{}{KeyCPUs: 30},
			expected: map[string]interface{}{KeyPartition: "node", KeyConstraint: "mem256GB", KeyCPUs: 20, KeyMem: 0},
			kinds:    []AdjustmentKind{TierSelected, CPUsCapped},
		},
		{
			name:     "empty request",
			input:    map[string]interface{}{},
			expected: map[string]interface{}{KeyPartition: "core", KeyCPUs: 1, KeyMem: 0},
			kinds:    []AdjustmentKind{},
		},
		{
			name:     "string values and a unit",
			input:    map[string]interface{}{KeyMem: "200G", KeyCPUs: "4", KeyPartition: "devel"},
			expected: map[string]interface{}{KeyPartition: "node", KeyConstraint: "mem256GB", KeyCPUs: 4, KeyMem: 0},
			kinds:    []AdjustmentKind{TierSelected},
		},
		{
			name:     "constraint dropped on core",
			input:    map[string]interface{}{KeyMem: 6400, KeyConstraint: "mem1TB", KeyPartition: "node"},
			expected: map[string]interface{}{KeyPartition: "core", KeyCPUs: 1, KeyMem: 0},
			kinds:    []AdjustmentKind{ConstraintDropped},
		},
		{
			name:     "unrelated keys are kept",
			input:    map[string]interface{}{KeyMem: 12800, "time": "01:00:00", "account": "snic2020"},
			expected: map[string]interface{}{KeyPartition: "core", KeyCPUs: 2, KeyMem: 0, "time": "01:00:00", "account": "snic2020"},
			kinds:    []AdjustmentKind{CPUsRaised},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseRequest(tc.input)
			require.NoError(t, err)
			resp, err := Adjust(req)
			require.NoError(t, err)
			assert.Equal(t, tc.kinds, kinds(resp))

			out, err := AdjustMap(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
			assert.Equal(t, tc.expected, tc.input, "the input map is updated in place")
		})
	}
}

func TestAdjustGranted(t *testing.T) {
	resp, err := Adjust(Request{Mem: intPtr(100000), CPUs: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 16*6400, resp.Granted)

	resp, err = Adjust(Request{Mem: intPtr(130000)})
	require.NoError(t, err)
	assert.Equal(t, 256000, resp.Granted)

	resp, err = Adjust(Request{Mem: intPtr(256001)})
	require.NoError(t, err)
	assert.Equal(t, 1000000, resp.Granted)
	assert.Equal(t, ConstraintMem1TB, resp.Constraint)
}

func TestAdjustBoundaries(t *testing.T) {
	for _, tc := range []struct {
		mem        int
		partition  string
		constraint string
	}{
		{mem: 0, partition: PartitionCore},
		{mem: 128000, partition: PartitionCore},
		{mem: 128001, partition: PartitionNode, constraint: ConstraintMem256GB},
		{mem: 256000, partition: PartitionNode, constraint: ConstraintMem256GB},
		{mem: 256001, partition: PartitionNode, constraint: ConstraintMem1TB},
		{mem: 1000000, partition: PartitionNode, constraint: ConstraintMem1TB},
		{mem: 1000001, partition: PartitionNode, constraint: ConstraintMem1TB},
	} {
		resp, err := Adjust(Request{Mem: intPtr(tc.mem)})
		require.NoError(t, err)
		assert.Equalf(t, tc.partition, resp.Partition, "mem=%d", tc.mem)
		assert.Equalf(t, tc.constraint, resp.Constraint, "mem=%d", tc.mem)
	}

	// 128000MB on the core partition needs all 20 cores
	resp, err := Adjust(Request{Mem: intPtr(128000)})
	require.NoError(t, err)
	assert.Equal(t, 20, resp.CPUs)
	assert.Equal(t, 128000, resp.Granted)

	// a request of 0MB keeps the CPUs asked for
	resp, err = Adjust(Request{Mem: intPtr(0), CPUs: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.CPUs)
	assert.Empty(t, resp.Adjustments)
}

func TestAdjustInvariants(t *testing.T) {
	mems := []int{0, 1, 6399, 6400, 6401, 64000, 127999, 128000, 128001, 200000, 256000, 256001, 999999, 1000000, 1000001, 5000000}
	cpus := []int{1, 2, 7, 19, 20, 21, 64}

	for _, m := range mems {
		for _, c := range cpus {
			resp, err := Adjust(Request{Mem: intPtr(m), CPUs: intPtr(c)})
			require.NoError(t, err)

			assert.GreaterOrEqualf(t, resp.CPUs, 1, "mem=%d cpus=%d", m, c)
			assert.LessOrEqualf(t, resp.CPUs, 20, "mem=%d cpus=%d", m, c)
			assert.Zerof(t, resp.Mem, "mem=%d cpus=%d", m, c)

			switch resp.Partition {
			case PartitionCore:
				assert.Emptyf(t, resp.Constraint, "mem=%d cpus=%d", m, c)
				assert.GreaterOrEqualf(t, resp.Granted, m, "core grants at least the requested memory (mem=%d cpus=%d)", m, c)
			case PartitionNode:
				assert.Containsf(t, []string{ConstraintMem256GB, ConstraintMem1TB}, resp.Constraint, "mem=%d cpus=%d", m, c)
			default:
				t.Errorf("unexpected partition %q for mem=%d cpus=%d", resp.Partition, m, c)
			}

			// feeding the decision back in lands in the same tier
			again, err := Adjust(Request{
				Partition:  strPtr(resp.Partition),
				Constraint: strPtr(resp.Constraint),
				CPUs:       intPtr(resp.CPUs),
				Mem:        intPtr(resp.Granted),
			})
			require.NoError(t, err)
			assert.Equalf(t, resp.Partition, again.Partition, "mem=%d cpus=%d", m, c)
			assert.Equalf(t, resp.Constraint, again.Constraint, "mem=%d cpus=%d", m, c)
			assert.Equalf(t, resp.Granted, again.Granted, "mem=%d cpus=%d", m, c)
		}
	}
}

func TestAdjustRejects(t *testing.T) {
	_, err := Adjust(Request{CPUs: intPtr(0)})
	assert.True(t, errors.Is(err, status.ErrInvalidCPUs))

	_, err = Adjust(Request{CPUs: intPtr(-4)})
	assert.True(t, errors.Is(err, status.ErrInvalidCPUs))

	_, err = Adjust(Request{Mem: intPtr(-1)})
	assert.True(t, errors.Is(err, status.ErrInvalidMem))

	p := Rackham()
	p.Tiers = nil
	_, err = Adjust(Request{}, WithPolicy(p))
	assert.True(t, errors.Is(err, status.ErrInvalidPolicy))

	args := map[string]interface{}{KeyMem: "lots"}
	out, err := AdjustMap(args)
	assert.True(t, errors.Is(err, status.ErrInvalidMem))
	assert.Equal(t, map[string]interface{}{KeyMem: "lots"}, out, "the map is left alone on error")
}

func TestAdjustLogsRejects(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	_, err := Adjust(Request{CPUs: intPtr(0)}, WithLogger(l))
	require.Error(t, err)
	_, err = Adjust(Request{Mem: intPtr(-1)}, WithLogger(l))
	require.Error(t, err)

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 2)
	assert.Equal(t, status.ErrInvalidCPUs.Error(), entries[0].Message)
	assert.Equal(t, "rackham", entries[0].ContextMap()["cluster"])
	assert.Equal(t, "{cpus-per-task: 0}", entries[0].ContextMap()["request"])
	assert.Contains(t, entries[0].ContextMap()["error"], "at least 1 CPU is required")
	assert.Equal(t, status.ErrInvalidMem.Error(), entries[1].Message)
}

func TestAdjustHugeCPURequests(t *testing.T) {
	resp, err := Adjust(Request{CPUs: intPtr(1 << 61)})
	require.NoError(t, err)
	assert.Equal(t, "node", resp.Partition)
	assert.Equal(t, "mem1TB", resp.Constraint)
	assert.Equal(t, 20, resp.CPUs)
	assert.Equal(t, 1000000, resp.Granted)
	assert.Equal(t, []AdjustmentKind{MemCapped, TierSelected, CPUsCapped}, kinds(resp))

	resp, err = Adjust(Request{CPUs: intPtr(1 << 61), Mem: intPtr(100)})
	require.NoError(t, err)
	assert.Equal(t, "core", resp.Partition)
	assert.Equal(t, 20, resp.CPUs)
	assert.Equal(t, 128000, resp.Granted)
	assert.Equal(t, []AdjustmentKind{CPUsCapped}, kinds(resp))
}

func TestAdjustLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	resp, err := Adjust(Request{Mem: intPtr(2000000), CPUs: intPtr(40)}, WithLogger(l))
	require.NoError(t, err)
	assert.Equal(t, []AdjustmentKind{MemCapped, TierSelected, CPUsCapped}, kinds(resp))

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "Requested memory (2000000MB) exceeds maximum possible on rackham")
	assert.Equal(t, "rackham", entries[0].ContextMap()["cluster"])
	assert.Equal(t, string(MemCapped), entries[0].ContextMap()["adjustment"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Contains(t, entries[1].Message, "constraining to nodes with 1TB of memory")

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Contains(t, entries[2].Message, "capping at 20")

	assert.Zero(t, logs.FilterMessageSnippet("adjusting resources").Len(), "debug messages stay below info level")
}

func TestAdjustNoLogWhenNothingChanges(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := Adjust(Request{CPUs: intPtr(4)}, WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Zero(t, logs.FilterLevelExact(zapcore.InfoLevel).Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("adjusting resources").Len())

	assert.NotPanics(t, func() {
		_, _ = Adjust(Request{}, WithLogger(nil))
	})
}

func TestAdjustCustomPolicy(t *testing.T) {
	p := Policy{
		Cluster:          "snowy",
		DefaultPartition: "core",
		MemPerCPU:        8000,
		MaxMem:           4000000,
		MaxCPUs:          16,
		Core:             CoreTier{Partition: "core", MaxMem: 128000},
		Tiers: []Tier{
			{Partition: "node", Constraint: "mem512GB", MaxMem: 512000, Mem: 512000},
			{Partition: "fat", MaxMem: 2000000, Mem: 2000000},
		},
	}

	resp, err := Adjust(Request{Mem: intPtr(20000)}, WithPolicy(p))
	require.NoError(t, err)
	assert.Equal(t, 3, resp.CPUs)
	assert.Equal(t, 24000, resp.Granted)

	resp, err = Adjust(Request{Mem: intPtr(300000)}, WithPolicy(p))
	require.NoError(t, err)
	assert.Equal(t, "mem512GB", resp.Constraint)

	// above the last tier but below MaxMem
	resp, err = Adjust(Request{Mem: intPtr(3000000)}, WithPolicy(p))
	require.NoError(t, err)
	assert.Equal(t, "fat", resp.Partition)
	assert.Empty(t, resp.Constraint)
	assert.Equal(t, 2000000, resp.Granted)
	assert.Equal(t, []AdjustmentKind{TierSelected}, kinds(resp))
}
