package remoterpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
)

func startTestServer(t *testing.T, svc *ModuleService[map[string]string]) (string, int) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName(ServiceName, svc))

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go server.ServeConn(conn)
		}
	}()
	t.Cleanup(func() { listener.Close() })

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestRemoteStepSuccessRoundTrip(t *testing.T) {
	upper := step.NewLeaf[map[string]string]("upper", "Upper", step.DefaultOptions(), func(ctx context.Context, pkg *trace.Package[map[string]string], st *trace.StepTrace) error {
		pkg.Data["key"] = pkg.Data["key"] + "-remote"
		st.Message = "transformed remotely"
		return nil
	})
	svc := NewModuleService[map[string]string](upper, nil, nil, nil)
	host, port := startTestServer(t, svc)

	client := NewClient[map[string]string](host, port, nil)

	pkg := trace.NewPackage("pipe-1", "inst-1", map[string]string{"key": "abc"})
	remote := step.NewRemote[map[string]string]("ExternalModule", step.DefaultOptions(), client)

	st := step.Run[map[string]string](context.Background(), remote, pkg, nil, trace.NewPhaseTrace("p1"), nil, nil)

	require.True(t, st.Success)
	assert.Equal(t, "abc-remote", pkg.Data["key"])
	require.Len(t, st.Children, 1)
	assert.Equal(t, "transformed remotely", st.Children[0].Message)
}

func TestRemoteStepFailureSurfacesAsError(t *testing.T) {
	failing := step.NewLeaf[map[string]string]("fail", "Failure", step.DefaultOptions(), func(ctx context.Context, pkg *trace.Package[map[string]string], st *trace.StepTrace) error {
		return errors.New("peer raised an exception")
	})
	svc := NewModuleService[map[string]string](failing, nil, nil, nil)
	host, port := startTestServer(t, svc)

	client := NewClient[map[string]string](host, port, nil)

	pkg := trace.NewPackage("pipe-1", "inst-1", map[string]string{"key": "abc"})
	remote := step.NewRemote[map[string]string]("ExternalModule", step.DefaultOptions(), client)

	st := step.Run[map[string]string](context.Background(), remote, pkg, nil, trace.NewPhaseTrace("p1"), nil, nil)

	require.False(t, st.Success)
	require.True(t, pkg.HasErrors())
	assert.Contains(t, pkg.Errors[len(pkg.Errors)-1].Message, "peer raised an exception")
}

func TestDialTimeoutIsBounded(t *testing.T) {
	orig := DialTimeout
	DialTimeout = 100 * time.Millisecond
	defer func() { DialTimeout = orig }()

	client := NewClient[map[string]string]("127.0.0.1", 1, nil)
	pkg := trace.NewPackage("pipe-1", "inst-1", map[string]string{"key": "abc"})
	err := client.Call(context.Background(), pkg, nil)
	require.Error(t, err)
}
