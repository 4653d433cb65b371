package wiring

import "fmt"

// TaskSchedulerType selects the execution policy of a task scheduler.
type TaskSchedulerType int

const (
	// Direct runs tasks on the caller's goroutine with no queue. Not safe
	// for concurrent producers.
	Direct TaskSchedulerType = iota

	// DirectThreadsafe runs tasks on the caller's goroutine, serialized by a
	// mutex so multiple producers may submit concurrently.
	DirectThreadsafe

	// Sequential runs tasks in FIFO order on one dedicated goroutine.
	Sequential

	// SequentialThread is Sequential pinned to one OS thread.
	SequentialThread

	// Concurrent runs tasks on the model's shared worker pool with no
	// ordering guarantee.
	Concurrent

	// NoOp discards every task. Used to disable a pipeline stage without
	// rewiring its neighbours.
	NoOp
)

func (t TaskSchedulerType) String() string {
	switch t {
	case Direct:
		return "DIRECT"
	case DirectThreadsafe:
		return "DIRECT_THREADSAFE"
	case Sequential:
		return "SEQUENTIAL"
	case SequentialThread:
		return "SEQUENTIAL_THREAD"
	case Concurrent:
		return "CONCURRENT"
	case NoOp:
		return "NO_OP"
	}
	return "UNKNOWN"
}

// ParseTaskSchedulerType maps a configuration string to a scheduler type.
func ParseTaskSchedulerType(s string) (TaskSchedulerType, error) {
	switch s {
	case "DIRECT":
		return Direct, nil
	case "DIRECT_THREADSAFE":
		return DirectThreadsafe, nil
	case "SEQUENTIAL":
		return Sequential, nil
	case "SEQUENTIAL_THREAD":
		return SequentialThread, nil
	case "CONCURRENT":
		return Concurrent, nil
	case "NO_OP":
		return NoOp, nil
	}
	return 0, fmt.Errorf("unknown task scheduler type %q", s)
}

// isDirect reports whether tasks run on the producer's goroutine.
func (t TaskSchedulerType) isDirect() bool {
	return t == Direct || t == DirectThreadsafe
}

// isSequential reports whether tasks run on a dedicated goroutine.
func (t TaskSchedulerType) isSequential() bool {
	return t == Sequential || t == SequentialThread
}
