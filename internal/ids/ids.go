// Package ids generates the stable, prefixed identifiers used throughout
// the trace record (spec §3.1, §4.1): "M-<type>-<uuid>" for steps,
// "DP-<uuid>" for packages, "Controller-<uuid>" and "Phase-<uuid>" for
// their respective traces.
package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a prefixed identifier of the form "<prefix>-<uuid4>".
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// Step returns a step identifier of the form "M-<type>-<uuid4>", matching
// the step-id format spec §4.1 requires.
func Step(stepType string) string {
	return fmt.Sprintf("M-%s-%s", stepType, uuid.NewString())
}
