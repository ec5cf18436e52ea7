package audit

import "time"

// Result classifies the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
	ResultDenied  Result = "denied"
)

// Entry is a single audit record. One entry is written for every
// privileged or mutating operation (job create/update/delete, build
// trigger/stop, queue cancel, agent restart, recovery attempt),
// regardless of outcome. Entries are never mutated after creation.
type Entry struct {
	ID       string         `json:"id"` // uuid, unique per entry
	Seq      uint64         `json:"seq"`
	Time     time.Time      `json:"ts"`
	PrevHash string         `json:"prev_hash"`
	User     string         `json:"user"`              // acting Jenkins user
	Action   string         `json:"action"`            // e.g. "trigger_build"
	Target   string         `json:"target"`            // job path, node name, queue id
	Result   Result         `json:"result"`            // success, failed, denied
	Details  map[string]any `json:"details,omitempty"` // action-specific context
	Error    string         `json:"error,omitempty"`   // error message if failed
	Hash     string         `json:"hash"`              // SHA-256 of this entry (with hash field empty)
}
