package tracking

// FrameStats summarises one Update call.
type FrameStats struct {
	Detections int // Detections supplied by the caller
	Matched    int // Accepted track/detection pairs
	Rejected   int // Proposed pairs below the IoU threshold
	Spawned    int // New tracks created
	Expired    int // Tracks dropped by the retention window
	Active     int // Working-set size after the update
	Fired      int // Events emitted
}

// Observer receives tracker instrumentation. Calls happen synchronously
// inside Update, so implementations must be cheap and must not call back
// into the tracker.
type Observer interface {
	ObserveFrame(stats FrameStats)
	ObserveEvent(ev TrackEvent)
}

type nopObserver struct{}

func (nopObserver) ObserveFrame(FrameStats) {}
func (nopObserver) ObserveEvent(TrackEvent) {}
