package ir

// Run log records. These are written by the engine's recorder and read back by
// the CLI trace command; they are not part of graph identity.

// RunStatus is the terminal or intermediate status of an ability run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunParked    RunStatus = "parked"
	RunDone      RunStatus = "done"
	RunCancelled RunStatus = "cancelled"
)

// RunRecord describes one ability run.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	Ability   string    `json:"ability"`
	GraphHash string    `json:"graph_hash"`
	ParentRun string    `json:"parent_run,omitempty"` // Run whose node effect triggered this one
	Depth     int       `json:"depth"`                // Chain depth, 0 for caller-requested runs
	Payload   IRObject  `json:"payload"`
	Status    RunStatus `json:"status"`
	Seq       int64     `json:"seq"` // Logical clock at enqueue time
}

// TraceKind categorizes trace entries.
type TraceKind string

const (
	TraceRunStart TraceKind = "run_start"
	TraceNode     TraceKind = "node"
	TraceMessage  TraceKind = "message"
	TraceChoice   TraceKind = "choice"
	TraceResume   TraceKind = "resume"
	TraceDefect   TraceKind = "defect"
	TraceRunEnd   TraceKind = "run_end"
)

// NoNode is the NodeID of trace entries and defects not tied to a node.
// Descriptions cannot declare it.
const NoNode = -2

// TraceEntry is one ordered event in the execution trace.
type TraceEntry struct {
	Seq    int64     `json:"seq"`
	RunID  string    `json:"run_id"`
	Kind   TraceKind `json:"kind"`
	NodeID int       `json:"node_id"`
	Detail string    `json:"detail,omitempty"`
}

// DefectRecord is a persisted defect report. RunID is empty for defects found
// while building a graph.
type DefectRecord struct {
	Seq     int64  `json:"seq"`
	RunID   string `json:"run_id,omitempty"`
	Graph   string `json:"graph"`
	Code    string `json:"code"`
	NodeID  int    `json:"node_id"`
	Message string `json:"message"`
}
