package runner

import "fmt"

// Task is the command sent to a worker. It carries no payload: the range of environments
// it acts on is the partition of the worker that receives it.
type Task uint8

const (
	// TaskStep steps every environment of the worker's partition.
	TaskStep Task = iota

	// TaskSample samples an action for every environment of the worker's partition.
	TaskSample

	// TaskStop terminates the worker, after all previously queued tasks.
	TaskStop
)

var taskNames = [...]string{"Step", "Sample", "Stop"}

// String implements fmt.Stringer.
func (t Task) String() string {
	if int(t) >= len(taskNames) {
		return fmt.Sprintf("Task(%d)", t)
	}
	return taskNames[t]
}
