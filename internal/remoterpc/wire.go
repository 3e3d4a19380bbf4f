package remoterpc

import (
	"time"

	"github.com/kranzdev/streampipe/internal/trace"
	"github.com/kranzdev/streampipe/pkg/perror"
)

// The Wire* types mirror the trace record entities (spec §3) as plain,
// gob-encodable values with no mutex and no unexported state — the
// shape the RPC message actually carries on the wire (spec §6.1). Every
// entity keeps its id so the receiving side can merge by id (spec §4.2).

// WireError mirrors pkg/perror.Error.
type WireError struct {
	ID           string
	Kind         string
	Message      string
	Frames       []string
	Thread       string
	StartContext string
	LocalVars    map[string]string
	GlobalVars   map[string]string
	EnvVars      map[string]string
}

// WireStepTrace mirrors trace.StepTrace.
type WireStepTrace struct {
	ID             string
	Name           string
	Running        bool
	StartTime      time.Time
	EndTime        time.Time
	WaitingTime    time.Duration
	ProcessingTime time.Duration
	TotalTime      time.Duration
	Message        string
	Success        bool
	Err            *WireError
	Children       []*WireStepTrace
}

// WirePhaseTrace mirrors trace.PhaseTrace.
type WirePhaseTrace struct {
	ID             string
	Name           string
	Running        bool
	StartTime      time.Time
	EndTime        time.Time
	ProcessingTime time.Duration
	Steps          []*WireStepTrace
}

// WireControllerTrace mirrors trace.ControllerTrace.
type WireControllerTrace struct {
	ID             string
	Name           string
	Mode           string
	Workers        int
	SequenceNumber int64
	Running        bool
	StartTime      time.Time
	EndTime        time.Time
	WaitingTime    time.Duration
	ProcessingTime time.Duration
	TotalTime      time.Duration
	Phases         []*WirePhaseTrace
}

// WirePackage mirrors trace.Package, the DataPackage of spec §6.1. Data
// is the opaque, codec-encoded payload.
type WirePackage struct {
	ID                  string
	PipelineID          string
	InstanceID          string
	Data                []byte
	Running             bool
	StartTime           time.Time
	EndTime             time.Time
	TotalWaitingTime    time.Duration
	TotalProcessingTime time.Duration
	TotalTime           time.Duration
	Success             bool
	Controllers         []*WireControllerTrace
	Errors              []*WireError
}

func errorToWire(e *perror.Error) *WireError {
	if e == nil {
		return nil
	}
	return &WireError{
		ID:           e.ID,
		Kind:         string(e.Kind),
		Message:      e.Message,
		Frames:       e.Frames,
		Thread:       e.Thread,
		StartContext: e.StartContext,
		LocalVars:    e.LocalVars,
		GlobalVars:   e.GlobalVars,
		EnvVars:      e.EnvVars,
	}
}

func errorFromWire(w *WireError) *perror.Error {
	if w == nil {
		return nil
	}
	return &perror.Error{
		ID:           w.ID,
		Kind:         perror.Kind(w.Kind),
		Message:      w.Message,
		Frames:       w.Frames,
		Thread:       w.Thread,
		StartContext: w.StartContext,
		LocalVars:    w.LocalVars,
		GlobalVars:   w.GlobalVars,
		EnvVars:      w.EnvVars,
	}
}

func stepTraceToWire(st *trace.StepTrace) *WireStepTrace {
	if st == nil {
		return nil
	}
	w := &WireStepTrace{
		ID:             st.ID,
		Name:           st.Name,
		Running:        st.Running,
		StartTime:      st.StartTime,
		EndTime:        st.EndTime,
		WaitingTime:    st.WaitingTime,
		ProcessingTime: st.ProcessingTime,
		TotalTime:      st.TotalTime,
		Message:        st.Message,
		Success:        st.Success,
		Err:            errorToWire(st.Err),
	}
	w.Children = make([]*WireStepTrace, len(st.Children))
	for i, c := range st.Children {
		w.Children[i] = stepTraceToWire(c)
	}
	return w
}

func stepTraceFromWire(w *WireStepTrace) *trace.StepTrace {
	if w == nil {
		return nil
	}
	st := &trace.StepTrace{
		ID:             w.ID,
		Name:           w.Name,
		Running:        w.Running,
		StartTime:      w.StartTime,
		EndTime:        w.EndTime,
		WaitingTime:    w.WaitingTime,
		ProcessingTime: w.ProcessingTime,
		TotalTime:      w.TotalTime,
		Message:        w.Message,
		Success:        w.Success,
		Err:            errorFromWire(w.Err),
	}
	st.Children = make([]*trace.StepTrace, len(w.Children))
	for i, c := range w.Children {
		st.Children[i] = stepTraceFromWire(c)
	}
	return st
}

func phaseTraceToWire(pt *trace.PhaseTrace) *WirePhaseTrace {
	if pt == nil {
		return nil
	}
	w := &WirePhaseTrace{
		ID:             pt.ID,
		Name:           pt.Name,
		Running:        pt.Running,
		StartTime:      pt.StartTime,
		EndTime:        pt.EndTime,
		ProcessingTime: pt.ProcessingTime,
	}
	w.Steps = make([]*WireStepTrace, len(pt.Steps))
	for i, s := range pt.Steps {
		w.Steps[i] = stepTraceToWire(s)
	}
	return w
}

func phaseTraceFromWire(w *WirePhaseTrace) *trace.PhaseTrace {
	if w == nil {
		return nil
	}
	pt := &trace.PhaseTrace{
		ID:             w.ID,
		Name:           w.Name,
		Running:        w.Running,
		StartTime:      w.StartTime,
		EndTime:        w.EndTime,
		ProcessingTime: w.ProcessingTime,
	}
	pt.Steps = make([]*trace.StepTrace, len(w.Steps))
	for i, s := range w.Steps {
		pt.Steps[i] = stepTraceFromWire(s)
	}
	return pt
}

func controllerTraceToWire(ct *trace.ControllerTrace) *WireControllerTrace {
	if ct == nil {
		return nil
	}
	w := &WireControllerTrace{
		ID:             ct.ID,
		Name:           ct.Name,
		Mode:           string(ct.Mode),
		Workers:        ct.Workers,
		SequenceNumber: ct.SequenceNumber,
		Running:        ct.Running,
		StartTime:      ct.StartTime,
		EndTime:        ct.EndTime,
		WaitingTime:    ct.WaitingTime,
		ProcessingTime: ct.ProcessingTime,
		TotalTime:      ct.TotalTime,
	}
	w.Phases = make([]*WirePhaseTrace, len(ct.Phases))
	for i, p := range ct.Phases {
		w.Phases[i] = phaseTraceToWire(p)
	}
	return w
}

func controllerTraceFromWire(w *WireControllerTrace) *trace.ControllerTrace {
	if w == nil {
		return nil
	}
	ct := &trace.ControllerTrace{
		ID:             w.ID,
		Name:           w.Name,
		Mode:           trace.Mode(w.Mode),
		Workers:        w.Workers,
		SequenceNumber: w.SequenceNumber,
		Running:        w.Running,
		StartTime:      w.StartTime,
		EndTime:        w.EndTime,
		WaitingTime:    w.WaitingTime,
		ProcessingTime: w.ProcessingTime,
		TotalTime:      w.TotalTime,
	}
	ct.Phases = make([]*trace.PhaseTrace, len(w.Phases))
	for i, p := range w.Phases {
		ct.Phases[i] = phaseTraceFromWire(p)
	}
	return ct
}

// packageToWire encodes pkg's payload with codec and flattens its trace
// into a WirePackage.
func packageToWire[T any](pkg *trace.Package[T], codec Codec) (*WirePackage, error) {
	data, err := codec.Encode(pkg.Data)
	if err != nil {
		return nil, err
	}
	w := &WirePackage{
		ID:                  pkg.ID(),
		PipelineID:          pkg.PipelineID(),
		InstanceID:          pkg.InstanceID,
		Data:                data,
		Running:             pkg.Running,
		StartTime:           pkg.StartTime,
		EndTime:             pkg.EndTime,
		TotalWaitingTime:    pkg.TotalWaitingTime,
		TotalProcessingTime: pkg.TotalProcessingTime,
		TotalTime:           pkg.TotalTime,
		Success:             pkg.Success,
	}
	w.Controllers = make([]*WireControllerTrace, len(pkg.Controllers))
	for i, c := range pkg.Controllers {
		w.Controllers[i] = controllerTraceToWire(c)
	}
	w.Errors = make([]*WireError, len(pkg.Errors))
	for i, e := range pkg.Errors {
		w.Errors[i] = errorToWire(e)
	}
	return w, nil
}

// packageFromWire decodes a WirePackage back into a fresh Package[T]. Its
// id/pipeline_id are set from the wire values via trace.RestorePackage,
// which keeps them behind the same immutability guard.
func packageFromWire[T any](w *WirePackage, codec Codec) (*trace.Package[T], error) {
	var data T
	if len(w.Data) > 0 {
		if err := codec.Decode(w.Data, &data); err != nil {
			return nil, err
		}
	}
	pkg := trace.RestorePackage[T](w.ID, w.PipelineID, w.InstanceID, data)
	pkg.Running = w.Running
	pkg.StartTime = w.StartTime
	pkg.EndTime = w.EndTime
	pkg.TotalWaitingTime = w.TotalWaitingTime
	pkg.TotalProcessingTime = w.TotalProcessingTime
	pkg.TotalTime = w.TotalTime
	pkg.Success = w.Success

	pkg.Controllers = make([]*trace.ControllerTrace, len(w.Controllers))
	for i, c := range w.Controllers {
		pkg.Controllers[i] = controllerTraceFromWire(c)
	}
	pkg.Errors = make([]*perror.Error, len(w.Errors))
	for i, e := range w.Errors {
		pkg.Errors[i] = errorFromWire(e)
	}
	return pkg, nil
}
