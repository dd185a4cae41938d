/*
Package resources adjusts the resources requested by a batch job so that they fit the
hardware partitions of a cluster.

On Rackham, memory is not allocated on its own: it comes with CPUs (6400MB per core on
the "core" partition) or with whole nodes of a given memory class (the "node" partition
constrained to "mem256GB" or "mem1TB"). Adjust maps a requested partition, CPU count and
memory onto that layout and always answers with mem=0, which the scheduler reads as
"all the memory that comes with the granted CPUs or node".

Every correction is reported in Response.Adjustments and logged through the zap logger
passed with WithLogger. Nothing is rejected for being too large: requests are capped.

The map-based API (ParseRequest, AdjustMap, Response.Apply) works with the keys used by
sbatch: partition, constraint, cpus-per-task and mem.
*/
package resources
