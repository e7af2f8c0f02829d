// Package tap tracks the IEEE 1149.1 TAP controller state machine and
// produces TMS bit patterns in the LSB-first byte layout used by the VPI
// scan and TMS sequence commands. It performs no I/O; the computed buffers
// are handed to a session for delivery.
package tap

import (
	"fmt"
	"strings"
)

// State is one of the 16 IEEE 1149.1 TAP controller states.
type State uint8

const (
	TestLogicReset State = iota
	RunTestIdle
	SelectDRScan
	CaptureDR
	ShiftDR
	Exit1DR
	PauseDR
	Exit2DR
	UpdateDR
	SelectIRScan
	CaptureIR
	ShiftIR
	Exit1IR
	PauseIR
	Exit2IR
	UpdateIR

	numStates = 16
)

var stateNames = [numStates]string{
	"TestLogicReset",
	"RunTestIdle",
	"SelectDRScan",
	"CaptureDR",
	"ShiftDR",
	"Exit1DR",
	"PauseDR",
	"Exit2DR",
	"UpdateDR",
	"SelectIRScan",
	"CaptureIR",
	"ShiftIR",
	"Exit1IR",
	"PauseIR",
	"Exit2IR",
	"UpdateIR",
}

func (s State) String() string {
	if int(s) < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// ParseState resolves a state name, ignoring case and the separators people
// type ("shift-dr", "shift_dr", "ShiftDR" all match).
func ParseState(name string) (State, error) {
	canon := strings.NewReplacer("-", "", "_", "", "/", "", " ", "").Replace(name)
	for i, n := range stateNames {
		if strings.EqualFold(canon, n) {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("tap: unknown state %q", name)
}

// next[s][0] is the state after clocking TCK with TMS=0, next[s][1] with
// TMS=1, per the IEEE 1149.1 state diagram.
var next = [numStates][2]State{
	TestLogicReset: {RunTestIdle, TestLogicReset},
	RunTestIdle:    {RunTestIdle, SelectDRScan},
	SelectDRScan:   {CaptureDR, SelectIRScan},
	CaptureDR:      {ShiftDR, Exit1DR},
	ShiftDR:        {ShiftDR, Exit1DR},
	Exit1DR:        {PauseDR, UpdateDR},
	PauseDR:        {PauseDR, Exit2DR},
	Exit2DR:        {ShiftDR, UpdateDR},
	UpdateDR:       {RunTestIdle, SelectDRScan},
	SelectIRScan:   {CaptureIR, TestLogicReset},
	CaptureIR:      {ShiftIR, Exit1IR},
	ShiftIR:        {ShiftIR, Exit1IR},
	Exit1IR:        {PauseIR, UpdateIR},
	PauseIR:        {PauseIR, Exit2IR},
	Exit2IR:        {ShiftIR, UpdateIR},
	UpdateIR:       {RunTestIdle, SelectDRScan},
}

// NextState returns the state after one TCK cycle with the given TMS value.
func NextState(current State, tms bool) State {
	if int(current) >= numStates {
		panic(fmt.Sprintf("tap: invalid state %d", current))
	}
	if tms {
		return next[current][1]
	}
	return next[current][0]
}

// Sequence is a TMS drive pattern together with the states it walks through.
// States always has one more entry than TMS (it includes the start state).
type Sequence struct {
	TMS    []bool
	States []State
}

// Bits reports the number of TCK cycles in the sequence.
func (q Sequence) Bits() uint32 {
	return uint32(len(q.TMS))
}

// Pack returns the sequence's TMS bits in the wire buffer layout, LSB first
// within each byte, along with the bit count.
func (q Sequence) Pack() ([]byte, uint32) {
	return PackBits(q.TMS)
}

// PackBits packs bits LSB-first into the ceil(n/8)-byte layout shared by the
// TMS, TDI, and TDO scan buffers.
func PackBits(bits []bool) ([]byte, uint32) {
	buf := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			buf[i/8] |= 1 << (i % 8)
		}
	}
	return buf, uint32(len(bits))
}

// UnpackBits expands the first n bits of a packed buffer, LSB first within
// each byte. Bits beyond the buffer read as zero.
func UnpackBits(buf []byte, n uint32) []bool {
	bits := make([]bool, n)
	for i := range bits {
		if i/8 < len(buf) && buf[i/8]&(1<<(i%8)) != 0 {
			bits[i] = true
		}
	}
	return bits
}

// StateMachine tracks the TAP controller state locally, mirroring what the
// remote TAP does with the TMS bits the client sends.
type StateMachine struct {
	state State
}

// NewStateMachine starts in Test-Logic-Reset, the state a TAP powers up in.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: TestLogicReset}
}

// State reports the current tracked state.
func (m *StateMachine) State() State {
	return m.state
}

// Clock advances one TCK cycle with the given TMS bit and returns the new
// state.
func (m *StateMachine) Clock(tms bool) State {
	m.state = NextState(m.state, tms)
	return m.state
}

// ClockBuffer advances the machine by n bits taken LSB-first from a packed
// TMS buffer, the same layout a scan operation puts on the wire.
func (m *StateMachine) ClockBuffer(buf []byte, n uint32) State {
	for _, bit := range UnpackBits(buf, n) {
		m.Clock(bit)
	}
	return m.state
}

// Reset clocks five TMS=1 cycles, which reaches Test-Logic-Reset from any
// state, and returns the sequence so it can be forwarded to a session.
func (m *StateMachine) Reset() Sequence {
	seq := Sequence{States: []State{m.state}}
	for i := 0; i < 5; i++ {
		seq.TMS = append(seq.TMS, true)
		seq.States = append(seq.States, m.Clock(true))
	}
	return seq
}

// GoTo computes the shortest TMS sequence from the current state to target,
// advances the machine along it, and returns it.
func (m *StateMachine) GoTo(target State) (Sequence, error) {
	seq, err := Path(m.state, target)
	if err != nil {
		return Sequence{}, err
	}
	m.state = target
	return seq, nil
}

// Path finds the shortest TMS sequence between two states with a breadth
// first search over the state diagram.
func Path(from, to State) (Sequence, error) {
	if int(from) >= numStates || int(to) >= numStates {
		return Sequence{}, fmt.Errorf("tap: invalid state pair %d -> %d", from, to)
	}
	if from == to {
		return Sequence{States: []State{from}}, nil
	}

	type node struct {
		state State
		seq   Sequence
	}
	queue := []node{{state: from, seq: Sequence{States: []State{from}}}}
	var visited [numStates]bool
	visited[from] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, tms := range [2]bool{false, true} {
			nxt := NextState(cur.state, tms)
			if visited[nxt] {
				continue
			}
			visited[nxt] = true

			seq := Sequence{
				TMS:    append(append([]bool(nil), cur.seq.TMS...), tms),
				States: append(append([]State(nil), cur.seq.States...), nxt),
			}
			if nxt == to {
				return seq, nil
			}
			queue = append(queue, node{state: nxt, seq: seq})
		}
	}
	return Sequence{}, fmt.Errorf("tap: no path from %s to %s", from, to)
}
