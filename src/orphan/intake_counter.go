package orphan

// IntakeEventCounter tracks the number of events currently inside the intake
// pipeline, per creator. Stages that drop an event before it reaches the end
// of the pipeline must report the exit, otherwise the count never drains.
type IntakeEventCounter interface {
	// EventEnteredIntakePipeline is called when an event is submitted to the
	// pipeline.
	EventEnteredIntakePipeline(creatorID uint32)

	// EventExitedIntakePipeline is called when an event leaves the pipeline,
	// whether processed to completion or dropped.
	EventExitedIntakePipeline(creatorID uint32)
}

type noOpIntakeCounter struct{}

func (noOpIntakeCounter) EventEnteredIntakePipeline(uint32) {}
func (noOpIntakeCounter) EventExitedIntakePipeline(uint32)  {}

// NewNoOpIntakeCounter returns an IntakeEventCounter that does nothing.
func NewNoOpIntakeCounter() IntakeEventCounter {
	return noOpIntakeCounter{}
}
