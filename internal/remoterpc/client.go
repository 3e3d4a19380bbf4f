package remoterpc

import (
	"context"
	"fmt"
	"net"
	"net/rpc"
	"time"

	"github.com/kranzdev/streampipe/internal/trace"
	"github.com/kranzdev/streampipe/pkg/perror"
)

// ServiceName is the RPC service name every ModuleService is registered
// under, matching spec §6.1's literal "ModuleService.Run" contract.
// Go's generic instantiation gives ModuleService[T] a mangled reflect
// name per T (e.g. "ModuleService[string]"), so the server always calls
// rpc.RegisterName(ServiceName, ...) instead of the bare rpc.Register.
const ServiceName = "ModuleService"

// DialTimeout bounds how long Client.Call waits to establish the
// underlying TCP connection before giving up.
var DialTimeout = 5 * time.Second

// Client performs the remote-step RPC round trip for a single step: it
// satisfies step.RemoteCaller[T] structurally. No transport-level
// authentication is applied, per spec §4.2 ("insecure channel is
// acceptable for the core").
type Client[T any] struct {
	Host  string
	Port  int
	Codec Codec
}

// NewClient constructs a Client using GobCodec unless codec is non-nil.
func NewClient[T any](host string, port int, codec Codec) *Client[T] {
	if codec == nil {
		codec = GobCodec{}
	}
	return &Client[T]{Host: host, Port: port, Codec: codec}
}

// Call dials the peer, invokes ModuleService.Run, and merges the
// response into pkg (spec §4.2, step 5). parent is the calling step's
// own StepTrace, serialized as the request's optional parent trace.
func (c *Client[T]) Call(ctx context.Context, pkg *trace.Package[T], parent *trace.StepTrace) error {
	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)
	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return perror.New(perror.KindRemote, "", fmt.Errorf("dial %s: %w", addr, err))
	}
	defer conn.Close()

	rpcClient := rpc.NewClient(conn)
	defer rpcClient.Close()

	wirePkg, err := packageToWire(pkg, c.Codec)
	if err != nil {
		return perror.New(perror.KindRemote, "", fmt.Errorf("encode package: %w", err))
	}
	req := &Request{Package: wirePkg, Parent: stepTraceToWire(parent)}
	resp := &Response{}

	call := rpcClient.Go(ServiceName+".Run", req, resp, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return perror.New(perror.KindTimeout, "", ctx.Err())
	case result := <-call.Done:
		if result.Error != nil {
			return perror.New(perror.KindRemote, "", result.Error)
		}
	}

	remotePkg, err := packageFromWire[T](resp.Package, c.Codec)
	if err != nil {
		return perror.New(perror.KindRemote, "", fmt.Errorf("decode package: %w", err))
	}
	pkg.Data = remotePkg.Data
	trace.MergeInto(pkg, remotePkg.Controllers, remotePkg.Errors)
	if parent != nil && resp.Parent != nil {
		trace.MergeStepChildren(parent, stepTraceFromWire(resp.Parent).Children)
	}

	if resp.Error != nil {
		return errorFromWire(resp.Error)
	}
	return nil
}
