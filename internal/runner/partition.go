package runner

import (
	"fmt"

	"github.com/pkg/errors"
)

// Partition is the half-open range [Start, End) of environment indices owned by one worker.
type Partition struct {
	Start, End int
}

// Len returns the number of environments in the partition.
func (p Partition) Len() int {
	return p.End - p.Start
}

// Contains returns whether idx belongs to the partition.
func (p Partition) Contains(idx int) bool {
	return idx >= p.Start && idx < p.End
}

// String implements fmt.Stringer.
func (p Partition) String() string {
	return fmt.Sprintf("[%d, %d)", p.Start, p.End)
}

// Partitions splits [0, n) into numWorkers contiguous partitions, in worker order.
//
// The first n%numWorkers workers get one extra environment, so the sizes of any two
// partitions differ by at most one. If numWorkers > n the trailing partitions are empty.
func Partitions(n, numWorkers int) ([]Partition, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid number of environments %d", n)
	}
	if numWorkers <= 0 {
		return nil, errors.Errorf("invalid number of workers %d, it must be >= 1", numWorkers)
	}
	base, remainder := n/numWorkers, n%numWorkers
	partitions := make([]Partition, numWorkers)
	for ii := range partitions {
		size := base
		if ii < remainder {
			size++
		}
		start := ii*base + min(ii, remainder)
		partitions[ii] = Partition{Start: start, End: start + size}
	}
	return partitions, nil
}
