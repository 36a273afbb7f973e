package joblogs

// EventCase identifies which variant of a GetJobStreamResponse is populated.
type EventCase int

const (
	// EventUnknown is reported for frames whose variant is not known to this client.
	EventUnknown EventCase = iota
	// EventState is a job state transition.
	EventState
	// EventTerminal carries terminal output, or the absence of it.
	EventTerminal
)

// String returns the string representation of the event case.
func (c EventCase) String() string {
	switch c {
	case EventState:
		return "STATE"
	case EventTerminal:
		return "TERMINAL"
	default:
		return "UNKNOWN"
	}
}

// GetJobStreamRequest is the request for opening a job stream.
type GetJobStreamRequest struct {
	JobID string `cbor:"job_id"`
}

// GetJobID returns the job ID of the request.
func (r *GetJobStreamRequest) GetJobID() string {
	if r == nil {
		return ""
	}
	return r.JobID
}

// GetJobStreamResponse is one event of a job stream.
// At most one of the variant fields is set.
type GetJobStreamResponse struct {
	State    *StateEvent    `cbor:"state,omitempty"`
	Terminal *TerminalEvent `cbor:"terminal,omitempty"`
}

// EventCase reports the populated variant.
func (r *GetJobStreamResponse) EventCase() EventCase {
	switch {
	case r == nil:
		return EventUnknown
	case r.State != nil:
		return EventState
	case r.Terminal != nil:
		return EventTerminal
	default:
		return EventUnknown
	}
}

// StateEvent reports a job state transition.
type StateEvent struct {
	Previous string `cbor:"previous,omitempty"`
	Current  string `cbor:"current"`
}

// TerminalEvent carries the terminal output of a job.
type TerminalEvent struct {
	// Terminal is nil when the output of the job is no longer available.
	Terminal *Terminal `cbor:"terminal"`
}

// Terminal is an ordered batch of terminal output.
type Terminal struct {
	Events []*TerminalLine `cbor:"events"`
}

// TerminalLine is a single unit of terminal output, a Line, a Step or both.
type TerminalLine struct {
	Line *Line `cbor:"line,omitempty"`
	Step *Step `cbor:"step,omitempty"`
}

// Line is a plain text line.
type Line struct {
	Msg string `cbor:"msg"`
}

// Step is raw output of a build or deploy step.
// Output may end in the middle of a multi-byte sequence or an escape sequence.
type Step struct {
	ID     uint32 `cbor:"id,omitempty"`
	Msg    string `cbor:"msg,omitempty"`
	Output []byte `cbor:"output,omitempty"`
}

// Frame holds the undecoded bytes of one received stream event.
type Frame struct {
	Data []byte
}

// UnmarshalBinary stores a copy of data in the frame.
func (f *Frame) UnmarshalBinary(data []byte) error {
	f.Data = append(f.Data[:0], data...)
	return nil
}

// MarshalBinary returns the raw frame bytes.
func (f *Frame) MarshalBinary() ([]byte, error) {
	return f.Data, nil
}
