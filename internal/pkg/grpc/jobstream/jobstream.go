// Package jobstream declares the JobService gRPC service.
//
// Messages travel with the CBOR codec (content-subtype "cbor"). Clients
// receive each event as a joblogsmodel.Frame so that decoding happens in the
// consumer, where malformed frames can be skipped without failing the stream.
package jobstream

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	joblogsmodel "github.com/hitesh22rana/logterminal/internal/model/joblogs"
	"github.com/hitesh22rana/logterminal/internal/pkg/grpc/codec"
)

const (
	// ServiceName is the fully qualified name of the service.
	ServiceName = "logterminal.v1.JobService"

	// JobServiceGetJobStreamFullMethodName is the full method name of GetJobStream.
	JobServiceGetJobStreamFullMethodName = "/" + ServiceName + "/GetJobStream"
)

// JobServiceClient is the client API for JobService.
type JobServiceClient interface {
	// GetJobStream opens a server stream of events for a single job.
	GetJobStream(
		ctx context.Context,
		in *joblogsmodel.GetJobStreamRequest,
		opts ...grpc.CallOption,
	) (grpc.ServerStreamingClient[joblogsmodel.Frame], error)
}

type jobServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewJobServiceClient creates a new JobService client.
func NewJobServiceClient(cc grpc.ClientConnInterface) JobServiceClient {
	return &jobServiceClient{cc}
}

func (c *jobServiceClient) GetJobStream(
	ctx context.Context,
	in *joblogsmodel.GetJobStreamRequest,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[joblogsmodel.Frame], error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(codec.Name)}, opts...)
	stream, err := c.cc.NewStream(ctx, &JobServiceServiceDesc.Streams[0], JobServiceGetJobStreamFullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[joblogsmodel.GetJobStreamRequest, joblogsmodel.Frame]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

// JobServiceServer is the server API for JobService.
type JobServiceServer interface {
	// GetJobStream streams the events of a single job.
	GetJobStream(*joblogsmodel.GetJobStreamRequest, grpc.ServerStreamingServer[joblogsmodel.GetJobStreamResponse]) error
}

// UnimplementedJobServiceServer must be embedded to have forward compatible implementations.
type UnimplementedJobServiceServer struct{}

// GetJobStream returns codes.Unimplemented.
func (UnimplementedJobServiceServer) GetJobStream(
	*joblogsmodel.GetJobStreamRequest,
	grpc.ServerStreamingServer[joblogsmodel.GetJobStreamResponse],
) error {
	return status.Error(codes.Unimplemented, "method GetJobStream not implemented")
}

// RegisterJobServiceServer registers the JobService implementation with the server.
func RegisterJobServiceServer(s grpc.ServiceRegistrar, srv JobServiceServer) {
	s.RegisterService(&JobServiceServiceDesc, srv)
}

func jobServiceGetJobStreamHandler(srv any, stream grpc.ServerStream) error {
	m := new(joblogsmodel.GetJobStreamRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}

	//nolint:forcetypeassert // The handler type is enforced by the service descriptor.
	return srv.(JobServiceServer).GetJobStream(
		m,
		&grpc.GenericServerStream[joblogsmodel.GetJobStreamRequest, joblogsmodel.GetJobStreamResponse]{ServerStream: stream},
	)
}

// JobServiceServiceDesc is the grpc.ServiceDesc for JobService.
var JobServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JobServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GetJobStream",
			Handler:       jobServiceGetJobStreamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "logterminal/v1/jobstream",
}
