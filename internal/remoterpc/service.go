package remoterpc

import (
	"context"
	"fmt"
	"net"
	"net/rpc"

	"github.com/kranzdev/streampipe/internal/ports"
	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
)

// Request is the RPC argument for ModuleService.Run (spec §6.1):
// RequestDPandDPM { data_package, data_package_module }.
type Request struct {
	Package *WirePackage
	Parent  *WireStepTrace
}

// Response is the RPC reply for ModuleService.Run: ReturnDPandError
// { data_package, error }. Parent carries back the caller's own step
// trace, now populated with whatever the hosted step appended as its
// children, since the server only ever mutates its own decoded copy
// (spec §4.2).
type Response struct {
	Package *WirePackage
	Parent  *WireStepTrace
	Error   *WireError
}

// ModuleService hosts exactly one step behind the ModuleService.Run
// contract (spec §4.2: "the server side hosts exactly one step and
// dispatches any received request through its normal run path"). T must
// match the Codec's payload type on both ends of the wire.
type ModuleService[T any] struct {
	Step    step.Step[T]
	Codec   Codec
	Metrics ports.MetricsCollector
	Logger  ports.Logger
}

// NewModuleService constructs a ModuleService wrapping step, using
// GobCodec unless codec is non-nil. logger may be nil.
func NewModuleService[T any](s step.Step[T], codec Codec, metrics ports.MetricsCollector, logger ports.Logger) *ModuleService[T] {
	if codec == nil {
		codec = GobCodec{}
	}
	return &ModuleService[T]{Step: s, Codec: codec, Metrics: metrics, Logger: logger}
}

// Run implements the single unary RPC method. It decodes the inbound
// package, runs the hosted step against it via the normal step.Run
// wrapper (so the hosted step gets the same mutex/timeout/metrics
// treatment it would in-process), and returns the resulting package and
// any error the step recorded.
func (m *ModuleService[T]) Run(req *Request, resp *Response) error {
	pkg, err := packageFromWire[T](req.Package, m.Codec)
	if err != nil {
		return fmt.Errorf("decode request package: %w", err)
	}
	parent := stepTraceFromWire(req.Parent)

	phaseTrace := trace.NewPhaseTrace("remote-host")
	if m.Logger != nil {
		m.Logger.Debug(context.Background(), "hosted step invoked", "component", "remoterpc", "step_id", m.Step.ID())
	}
	if parent == nil {
		parent = trace.NewStepTrace(m.Step.ID(), m.Step.Name())
	}
	step.Run(context.Background(), m.Step, pkg, parent, phaseTrace, m.Metrics, m.Logger)

	wirePkg, err := packageToWire(pkg, m.Codec)
	if err != nil {
		return fmt.Errorf("encode response package: %w", err)
	}
	resp.Package = wirePkg
	resp.Parent = stepTraceToWire(parent)
	if len(pkg.Errors) > 0 {
		resp.Error = errorToWire(pkg.Errors[len(pkg.Errors)-1])
	}
	return nil
}

// Serve registers svc under ServiceName and blocks accepting connections
// on addr until the listener is closed or ctx is cancelled. One
// goroutine per accepted connection, matching net/rpc's usual
// rpc.ServeConn pattern.
func Serve[T any](ctx context.Context, addr string, svc *ModuleService[T]) error {
	server := rpc.NewServer()
	if err := server.RegisterName(ServiceName, svc); err != nil {
		return fmt.Errorf("register %s: %w", ServiceName, err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go server.ServeConn(conn)
	}
}
