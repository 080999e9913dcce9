package collective

import (
	"context"
	"net"
	"time"

	"github.com/pion/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/Kateryna56/MPI-NET/internal/logx"
)

const (
	serviceName    = "mpibench.Collective"
	exchangeMethod = "/" + serviceName + "/Exchange"

	// A 20M element scatter chunk is well under this.
	maxMsgSize = 1 << 30
)

type collectiveServer interface {
	Exchange(context.Context, *Envelope) (*Envelope, error)
}

func exchangeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(collectiveServer).Exchange(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: exchangeMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(collectiveServer).Exchange(ctx, req.(*Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

var collectiveServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*collectiveServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Exchange",
			Handler:    exchangeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mpibench/collective",
}

// Server exposes a Hub to ranks running in other processes.
type Server struct {
	hub  *Hub
	grpc *grpc.Server
	log  logging.LeveledLogger
}

// NewServer wraps hub in a gRPC server. A nil creds serves plaintext.
func NewServer(hub *Hub, creds credentials.TransportCredentials, factory logging.LoggerFactory) *Server {
	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(wireCodec{}),
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    5 * time.Second,
			Timeout: 1 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	if creds != nil {
		opts = append(opts, grpc.Creds(creds))
	}

	s := grpc.NewServer(opts...)
	s.RegisterService(&collectiveServiceDesc, hub)
	return &Server{hub: hub, grpc: s, log: logx.Scoped(factory, "transport")}
}

// Serve accepts ranks on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Infof("hub for %d ranks listening at %v", s.hub.Size(), lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop waits for in-flight exchanges to be answered, then closes the server.
func (s *Server) Stop() {
	s.log.Debug("stopping hub server")
	s.grpc.GracefulStop()
}

// Client is an Exchanger that reaches a remote Hub.
type Client struct {
	conn *grpc.ClientConn
	log  logging.LeveledLogger
}

// Dial prepares a connection to the hub at addr. The connection is made
// lazily and calls wait for it, so ranks may start before the hub does.
// A nil creds dials plaintext.
func Dial(addr string, creds credentials.TransportCredentials, factory logging.LoggerFactory, extra ...grpc.DialOption) (*Client, error) {
	if creds == nil {
		creds = insecure.NewCredentials()
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(wireCodec{}),
			grpc.MaxCallRecvMsgSize(maxMsgSize),
			grpc.MaxCallSendMsgSize(maxMsgSize),
			grpc.WaitForReady(true),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	log := logx.Scoped(factory, "transport")
	log.Debugf("hub client for %s ready", addr)
	return &Client{conn: conn, log: log}, nil
}

// Exchange implements Exchanger.
func (c *Client) Exchange(ctx context.Context, in *Envelope) (*Envelope, error) {
	out := new(Envelope)
	if err := c.conn.Invoke(ctx, exchangeMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
