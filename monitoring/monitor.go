// Package monitoring turns a profiling recorder into a small web server so
// that a running host can be inspected from outside.
package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"

	"github.com/altiuslab/benchtools/profiling"
)

// Monitor exposes the live state of a Recorder over HTTP: the completed
// snapshot, the set of pending (possibly leaked) tasks, aggregate runtimes,
// and process resource usage.
type Monitor struct {
	recorder      *profiling.Recorder
	portNumber    int
	openDashboard bool

	totalTime   *profiling.TotalTimeObserver
	averageTime *profiling.AverageTimeObserver
}

// NewMonitor creates a Monitor over the given recorder. The monitor attaches
// its own aggregate observers to the recorder.
func NewMonitor(recorder *profiling.Recorder) *Monitor {
	m := &Monitor{
		recorder:    recorder,
		totalTime:   profiling.NewTotalTimeObserver(nil),
		averageTime: profiling.NewAverageTimeObserver(nil),
	}

	recorder.AcceptObserver(m.totalTime)
	recorder.AcceptObserver(m.averageTime)

	return m
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithDashboard makes StartServer open the monitor URL in a browser.
func (m *Monitor) WithDashboard() *Monitor {
	m.openDashboard = true

	return m
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() error {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/pending", m.listPending)
	r.HandleFunc("/api/snapshot", m.snapshot)
	r.HandleFunc("/api/summary", m.summary)
	r.HandleFunc("/api/resource", m.listResources)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return fmt.Errorf("starting monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring profiler with %s\n", url)

	if m.openDashboard {
		err := browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open dashboard: %s\n", err)
		}
	}

	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()

	return nil
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d}", m.recorder.CurrentTime())
}

type pendingRsp struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

func (m *Monitor) listPending(w http.ResponseWriter, _ *http.Request) {
	keys := m.recorder.PendingKeys()

	rsp := make([]pendingRsp, 0, len(keys))
	for _, k := range keys {
		rsp = append(rsp, pendingRsp{Name: k.Name, Scope: k.Scope})
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) snapshot(w http.ResponseWriter, _ *http.Request) {
	data, err := profiling.RenderJSON(m.recorder.Snapshot())
	dieOnErr(err)

	_, err = w.Write(data)
	dieOnErr(err)
}

type summaryRsp struct {
	CompletedCount int   `json:"completed_count"`
	PendingCount   int   `json:"pending_count"`
	TotalTime      int64 `json:"total_time"`
	AverageTime    int64 `json:"average_time"`
}

func (m *Monitor) summary(w http.ResponseWriter, _ *http.Request) {
	rsp := summaryRsp{
		CompletedCount: m.recorder.CompletedCount(),
		PendingCount:   len(m.recorder.PendingKeys()),
		TotalTime:      int64(m.totalTime.TotalTime()),
		AverageTime:    int64(m.averageTime.AverageTime()),
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memorySize, err := proc.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
