package profiling

import "sync"

// An Observer is notified of every record a Recorder completes.
type Observer interface {
	TaskFinished(rec TaskRecord)
}

// TotalTimeObserver collects the total time spent on a certain type of task.
// If the execution of two tasks overlaps, this observer simply adds the two
// task runtimes together.
type TotalTimeObserver struct {
	filter TaskFilter

	lock      sync.Mutex
	totalTime TimeNanos
	taskCount uint64
}

// NewTotalTimeObserver creates a new TotalTimeObserver. A nil filter accepts
// every record.
func NewTotalTimeObserver(filter TaskFilter) *TotalTimeObserver {
	return &TotalTimeObserver{filter: filter}
}

// TaskFinished accumulates the runtime of a completed record.
func (o *TotalTimeObserver) TaskFinished(rec TaskRecord) {
	if o.filter != nil && !o.filter(rec) {
		return
	}

	o.lock.Lock()
	o.totalTime += rec.Runtime
	o.taskCount++
	o.lock.Unlock()
}

// TotalTime returns the total time spent on the observed tasks.
func (o *TotalTimeObserver) TotalTime() TimeNanos {
	o.lock.Lock()
	defer o.lock.Unlock()

	return o.totalTime
}

// TotalCount returns the number of observed tasks.
func (o *TotalTimeObserver) TotalCount() uint64 {
	o.lock.Lock()
	defer o.lock.Unlock()

	return o.taskCount
}

// AverageTimeObserver collects the average runtime of a certain type of
// task.
type AverageTimeObserver struct {
	filter TaskFilter

	lock        sync.Mutex
	averageTime TimeNanos
	taskCount   uint64
}

// NewAverageTimeObserver creates a new AverageTimeObserver. A nil filter
// accepts every record.
func NewAverageTimeObserver(filter TaskFilter) *AverageTimeObserver {
	return &AverageTimeObserver{filter: filter}
}

// TaskFinished folds the runtime of a completed record into the running
// average.
func (o *AverageTimeObserver) TaskFinished(rec TaskRecord) {
	if o.filter != nil && !o.filter(rec) {
		return
	}

	o.lock.Lock()
	o.averageTime = TimeNanos(
		(float64(o.averageTime)*float64(o.taskCount) + float64(rec.Runtime)) /
			float64(o.taskCount+1))
	o.taskCount++
	o.lock.Unlock()
}

// AverageTime returns the average runtime of the observed tasks.
func (o *AverageTimeObserver) AverageTime() TimeNanos {
	o.lock.Lock()
	defer o.lock.Unlock()

	return o.averageTime
}

// TotalCount returns the number of observed tasks.
func (o *AverageTimeObserver) TotalCount() uint64 {
	o.lock.Lock()
	defer o.lock.Unlock()

	return o.taskCount
}
