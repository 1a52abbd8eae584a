package labeling

// JobState is the lifecycle of the label job currently owned by the assembler
type JobState string

const (
	JobStateIdle      JobState = "IDLE"      // ready for a job
	JobStateLayout    JobState = "LAYOUT"    // building pages and drawing barcodes
	JobStateRasterize JobState = "RASTERIZE" // PDF path only
	JobStateDone      JobState = "DONE"
	JobStateFailed    JobState = "FAILED"
)

// IsValid checks if the JobState is a valid value
func (s JobState) IsValid() bool {
	switch s {
	case JobStateIdle, JobStateLayout, JobStateRasterize, JobStateDone, JobStateFailed:
		return true
	}
	return false
}

// String returns the string representation of JobState
func (s JobState) String() string {
	return string(s)
}

// IsTerminal returns true when the job has finished, successfully or not
func (s JobState) IsTerminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// IsBusy returns true while a job is in flight
func (s JobState) IsBusy() bool {
	return s == JobStateLayout || s == JobStateRasterize
}

// CanTransitionTo checks if the state can move to target. Terminal states only
// go back to IDLE, which releases the assembler for the next job.
func (s JobState) CanTransitionTo(target JobState) bool {
	switch s {
	case JobStateIdle:
		return target == JobStateLayout || target == JobStateFailed
	case JobStateLayout:
		return target == JobStateRasterize || target == JobStateDone || target == JobStateFailed
	case JobStateRasterize:
		return target == JobStateDone || target == JobStateFailed
	case JobStateDone, JobStateFailed:
		return target == JobStateIdle
	}
	return false
}
