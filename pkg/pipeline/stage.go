// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
)

const (
	// StagePending is the state before any work is done.
	StagePending Stage = iota
	// StageScanned means every local script was read and scanned.
	StageScanned
	// StageResolved means the embed graph is valid.
	StageResolved
	// StageAssembled means final names and bindings are computed.
	StageAssembled
	// StageRewritten means the scripts are placed in the document.
	StageRewritten
	// StageInjected means trigger buttons were generated.
	StageInjected
	// StageFailed is terminal.
	StageFailed
)

type (
	// Stage is a state of a build.
	Stage int

	// machine enforces the stage order of one build.
	machine struct {
		state  Stage
		passed []Stage
	}
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "Pending"
	case StageScanned:
		return "Scanned"
	case StageResolved:
		return "Resolved"
	case StageAssembled:
		return "Assembled"
	case StageRewritten:
		return "Rewritten"
	case StageInjected:
		return "Injected"
	case StageFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// action names the work performed to reach the stage.
func (s Stage) action() string {
	switch s {
	case StageScanned:
		return "scan"
	case StageResolved:
		return "resolve"
	case StageAssembled:
		return "assemble"
	case StageRewritten:
		return "rewrite"
	case StageInjected:
		return "inject"
	case StagePending, StageFailed:
		return "build"
	default:
		return s.String()
	}
}

func (m *machine) advance(to Stage) error {
	if m.state == StageFailed || to != m.state+1 || to >= StageFailed {
		return fmt.Errorf("invalid build transition %s -> %s", m.state, to)
	}
	m.state = to
	m.passed = append(m.passed, to)
	return nil
}

func (m *machine) fail() {
	m.state = StageFailed
}

func (m *machine) stages() []Stage {
	out := make([]Stage, len(m.passed))
	copy(out, m.passed)
	return out
}
