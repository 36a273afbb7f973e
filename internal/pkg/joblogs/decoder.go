// Package joblogs turns a job stream into ordered terminal write instructions.
package joblogs

import (
	"fmt"

	joblogsmodel "github.com/hitesh22rana/logterminal/internal/model/joblogs"
	"github.com/hitesh22rana/logterminal/internal/pkg/grpc/codec"
)

// UnavailableMessage is written when the server reports that no terminal output exists for the job.
const UnavailableMessage = "Logs are no longer available for this operation"

// InstructionKind is the kind of sink write an instruction asks for.
type InstructionKind int

const (
	// KindLine writes a line of text.
	KindLine InstructionKind = iota + 1
	// KindBytes writes raw bytes verbatim.
	KindBytes
	// KindStatus writes a status line.
	KindStatus
)

// String returns the string representation of the instruction kind.
func (k InstructionKind) String() string {
	switch k {
	case KindLine:
		return "LINE"
	case KindBytes:
		return "BYTES"
	case KindStatus:
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}

// Instruction is a single write to apply to the output sink.
type Instruction struct {
	Kind InstructionKind
	Text string
	Data []byte
}

// WriteLine returns an instruction writing text as a line.
func WriteLine(text string) Instruction {
	return Instruction{Kind: KindLine, Text: text}
}

// WriteBytes returns an instruction writing data verbatim.
func WriteBytes(data []byte) Instruction {
	return Instruction{Kind: KindBytes, Data: data}
}

// WriteStatusLine returns an instruction writing a status line.
func WriteStatusLine(text string) Instruction {
	return Instruction{Kind: KindStatus, Text: text}
}

// Decode maps one stream event to the sink writes it produces, in order.
//
// State transitions produce nothing; they are observed but not rendered.
// Unknown variants produce nothing.
func Decode(res *joblogsmodel.GetJobStreamResponse) []Instruction {
	//nolint:exhaustive // Every other case is a no-op.
	switch res.EventCase() {
	case joblogsmodel.EventTerminal:
		return decodeTerminal(res.Terminal)
	default:
		return nil
	}
}

func decodeTerminal(ev *joblogsmodel.TerminalEvent) []Instruction {
	if ev.Terminal == nil {
		return []Instruction{WriteStatusLine(UnavailableMessage)}
	}

	out := make([]Instruction, 0, len(ev.Terminal.Events))
	for _, line := range ev.Terminal.Events {
		if line == nil {
			continue
		}

		// An entry may carry both a line and a step; the line is written first.
		if line.Line != nil && line.Line.Msg != "" {
			out = append(out, WriteLine(line.Line.Msg))
		}
		// Step output is passed through as bytes. Decoding it here would
		// corrupt code points and escape sequences split across steps.
		if line.Step != nil && len(line.Step.Output) > 0 {
			out = append(out, WriteBytes(append([]byte(nil), line.Step.Output...)))
		}
	}

	return out
}

// DecodeFrame decodes a raw frame and maps it to sink writes.
// A frame that is not a valid event returns an error and no instructions.
func DecodeFrame(frame *joblogsmodel.Frame) ([]Instruction, error) {
	if frame == nil || len(frame.Data) == 0 {
		return nil, nil
	}

	var res joblogsmodel.GetJobStreamResponse
	if err := codec.Unmarshal(frame.Data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode job stream frame: %w", err)
	}

	return Decode(&res), nil
}
