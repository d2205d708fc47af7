package tasks

import "fmt"

// Phase identifies the pipeline step a progress update belongs to.
type Phase int

const (
	PhaseConnectivity Phase = iota
	PhaseLookup
	PhaseCheckpoint
	PhaseTrackDone
)

// ProgressUpdate is a non-blocking status message emitted while a run
// executes, for CLI layers to render.
type ProgressUpdate struct {
	Phase   Phase
	Current int
	Total   int
	TrackID string
	Message string
}

func connectivityUpdate(ok bool) ProgressUpdate {
	msg := "metadata service reachable"
	if !ok {
		msg = "metadata service unreachable, running offline"
	}
	return ProgressUpdate{Phase: PhaseConnectivity, Message: msg}
}

func lookupUpdate(current, total int, trackID, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseLookup,
		Current: current,
		Total:   total,
		TrackID: trackID,
		Message: fmt.Sprintf("matching %s", name),
	}
}

func trackDoneUpdate(current, total int, trackID, status string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseTrackDone,
		Current: current,
		Total:   total,
		TrackID: trackID,
		Message: status,
	}
}

func checkpointUpdate(processed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCheckpoint,
		Current: processed,
		Message: fmt.Sprintf("checkpoint saved (%d processed)", processed),
	}
}
