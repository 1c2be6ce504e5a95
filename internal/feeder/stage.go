package feeder

// Stage is the feeding cycle stage.
type Stage string

const (
	StageStopped       Stage = "STOPPED"
	StageChainOnly     Stage = "CHAIN_ONLY"
	StageBothRunning   Stage = "BOTH_RUNNING"
	StagePausedForFill Stage = "PAUSED_FOR_FILL"
	StageCompleted     Stage = "COMPLETED"
	StageFailed        Stage = "FAILED"
)

// Terminal reports whether the stage ends a cycle. A terminal session is
// only left via StopAll followed by a fresh StartFeeding.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Active reports whether a cycle is in progress and Update should run.
func (s Stage) Active() bool {
	return s == StageChainOnly || s == StageBothRunning || s == StagePausedForFill
}
