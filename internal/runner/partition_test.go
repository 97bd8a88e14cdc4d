package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitions(t *testing.T) {
	for n := 0; n <= 40; n++ {
		for numWorkers := 1; numWorkers <= 12; numWorkers++ {
			partitions, err := Partitions(n, numWorkers)
			require.NoError(t, err)
			require.Len(t, partitions, numWorkers)

			// Contiguous, gap-free coverage of [0, n).
			next := 0
			minSize, maxSize := n, 0
			for _, p := range partitions {
				assert.Equal(t, next, p.Start, "n=%d, workers=%d: %v", n, numWorkers, partitions)
				assert.GreaterOrEqual(t, p.End, p.Start)
				next = p.End
				minSize = min(minSize, p.Len())
				maxSize = max(maxSize, p.Len())
			}
			assert.Equal(t, n, next, "n=%d, workers=%d: %v", n, numWorkers, partitions)
			assert.LessOrEqual(t, maxSize-minSize, 1, "n=%d, workers=%d: %v", n, numWorkers, partitions)

			// Each index in exactly one partition.
			for idx := range n {
				count := 0
				for _, p := range partitions {
					if p.Contains(idx) {
						count++
					}
				}
				assert.Equal(t, 1, count, "index %d", idx)
			}
		}
	}
}

func TestPartitionsSizes(t *testing.T) {
	partitions, err := Partitions(17, 4)
	require.NoError(t, err)
	assert.Equal(t, []Partition{{0, 5}, {5, 9}, {9, 13}, {13, 17}}, partitions)
	assert.Equal(t, "[5, 9)", partitions[1].String())

	partitions, err = Partitions(3, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 0, 0}, []int{
		partitions[0].Len(), partitions[1].Len(), partitions[2].Len(), partitions[3].Len(), partitions[4].Len()})

	_, err = Partitions(10, 0)
	assert.Error(t, err)
	_, err = Partitions(-1, 2)
	assert.Error(t, err)
}
