package harness

// Trace event types.
const (
	EventInit       = "init"
	EventInitFailed = "init_failed"
	EventHalt       = "halt"
	EventCall       = "call"
)

// TraceEvent is one step of a scenario run. Boot events carry Name and
// Detail; call events carry the remaining fields.
type TraceEvent struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Detail string `json:"detail,omitempty"`

	Seq        int64  `json:"seq,omitempty"`
	FID        string `json:"fid,omitempty"`
	Descriptor string `json:"descriptor,omitempty"`
	Handler    string `json:"handler,omitempty"`
	Result     string `json:"result,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace holds boot and call events in the order they happened.
	Trace []TraceEvent `json:"trace"`

	// Halted reports whether boot halted; HaltCode is the structural code.
	Halted   bool   `json:"halted"`
	HaltCode string `json:"halt_code,omitempty"`

	// Fingerprint identifies the built table. Empty when boot halted.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
