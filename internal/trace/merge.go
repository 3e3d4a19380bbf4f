package trace

import "github.com/kranzdev/streampipe/pkg/perror"

// MergeInto merges a remote package's trace additions into local,
// per spec §4.2: local's immutable id/pipeline_id are preserved
// regardless of what the remote side reports, and nested trace/error
// lists are merged by id — update in place when an id already exists
// locally, append when it is new. This is the inverse of serializing a
// package for an outbound remote-step call and the place where a
// returning response gets folded back into the caller's package.
func MergeInto[T any](local *Package[T], remoteControllers []*ControllerTrace, remoteErrors []*perror.Error) {
	local.mu.Lock()
	defer local.mu.Unlock()
	local.Controllers = mergeControllers(local.Controllers, remoteControllers)
	local.Errors = mergeErrors(local.Errors, remoteErrors)
	if len(local.Errors) > 0 {
		local.Success = false
	}
}

func mergeControllers(local, remote []*ControllerTrace) []*ControllerTrace {
	index := make(map[string]int, len(local))
	out := append([]*ControllerTrace(nil), local...)
	for i, c := range out {
		index[c.ID] = i
	}
	for _, r := range remote {
		if i, ok := index[r.ID]; ok {
			out[i] = r
		} else {
			index[r.ID] = len(out)
			out = append(out, r)
		}
	}
	return out
}

func mergeSteps(local, remote []*StepTrace) []*StepTrace {
	index := make(map[string]int, len(local))
	out := append([]*StepTrace(nil), local...)
	for i, s := range out {
		index[s.ID] = i
	}
	for _, r := range remote {
		if i, ok := index[r.ID]; ok {
			out[i] = r
		} else {
			index[r.ID] = len(out)
			out = append(out, r)
		}
	}
	return out
}

func mergeErrors(local, remote []*perror.Error) []*perror.Error {
	index := make(map[string]int, len(local))
	out := append([]*perror.Error(nil), local...)
	for i, e := range out {
		index[e.ID] = i
	}
	for _, r := range remote {
		if i, ok := index[r.ID]; ok {
			out[i] = r
		} else {
			index[r.ID] = len(out)
			out = append(out, r)
		}
	}
	return out
}

// MergeStepChildren merges a remote host's record of what it ran under
// the calling step's trace back into that step's local Children, by id
// (spec §4.2: a remote step's own child trace is only ever observed by
// the server that ran it, so the client has to fold it back in once the
// response arrives). The server records the hosted step only under the
// calling step's trace, so remoterpc.Client calls this for every Remote
// step, whether it runs directly off a phase or nested inside a
// conditional or combination step; MergeInto covers the package level.
func MergeStepChildren(local *StepTrace, remote []*StepTrace) {
	local.mu.Lock()
	defer local.mu.Unlock()
	local.Children = mergeSteps(local.Children, remote)
}
