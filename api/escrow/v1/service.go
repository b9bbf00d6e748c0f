package escrowv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "rentalescrow.v1.EscrowService"

// FullMethod returns the gRPC method path for an EscrowService RPC.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type EscrowServiceServer interface {
	CreateEscrow(context.Context, *CreateEscrowRequest) (*EscrowResponse, error)
	Deposit(context.Context, *DepositRequest) (*EscrowResponse, error)
	ActivateRental(context.Context, *EscrowIdRequest) (*EscrowResponse, error)
	ReleaseToLender(context.Context, *EscrowIdRequest) (*EscrowResponse, error)
	RaiseDispute(context.Context, *RaiseDisputeRequest) (*EscrowResponse, error)
	ResolveDispute(context.Context, *ResolveDisputeRequest) (*EscrowResponse, error)
	CancelEscrow(context.Context, *EscrowIdRequest) (*EscrowResponse, error)
	GetEscrow(context.Context, *EscrowIdRequest) (*EscrowResponse, error)
	GetUserEscrows(context.Context, *GetUserEscrowsRequest) (*GetUserEscrowsResponse, error)
	ListEvents(context.Context, *EscrowIdRequest) (*ListEventsResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	ListEntries(context.Context, *ListEntriesRequest) (*ListEntriesResponse, error)
	SetFeePercentage(context.Context, *FeePercentage) (*FeePercentage, error)
	GetFeePercentage(context.Context, *emptypb.Empty) (*FeePercentage, error)
	GetFeePool(context.Context, *emptypb.Empty) (*FeePoolResponse, error)
	WithdrawFees(context.Context, *WithdrawFeesRequest) (*FeePoolResponse, error)
	mustEmbedUnimplementedEscrowServiceServer()
}

// UnimplementedEscrowServiceServer must be embedded by implementations.
type UnimplementedEscrowServiceServer struct{}

func (UnimplementedEscrowServiceServer) CreateEscrow(context.Context, *CreateEscrowRequest) (*EscrowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateEscrow not implemented")
}
func (UnimplementedEscrowServiceServer) Deposit(context.Context, *DepositRequest) (*EscrowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Deposit not implemented")
}
func (UnimplementedEscrowServiceServer) ActivateRental(context.Context, *EscrowIdRequest) (*EscrowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ActivateRental not implemented")
}
func (UnimplementedEscrowServiceServer) ReleaseToLender(context.Context, *EscrowIdRequest) (*EscrowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReleaseToLender not implemented")
}
func (UnimplementedEscrowServiceServer) RaiseDispute(context.Context, *RaiseDisputeRequest) (*EscrowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RaiseDispute not implemented")
}
func (UnimplementedEscrowServiceServer) ResolveDispute(context.Context, *ResolveDisputeRequest) (*EscrowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResolveDispute not implemented")
}
func (UnimplementedEscrowServiceServer) CancelEscrow(context.Context, *EscrowIdRequest) (*EscrowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CancelEscrow not implemented")
}
func (UnimplementedEscrowServiceServer) GetEscrow(context.Context, *EscrowIdRequest) (*EscrowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetEscrow not implemented")
}
func (UnimplementedEscrowServiceServer) GetUserEscrows(context.Context, *GetUserEscrowsRequest) (*GetUserEscrowsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUserEscrows not implemented")
}
func (UnimplementedEscrowServiceServer) ListEvents(context.Context, *EscrowIdRequest) (*ListEventsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListEvents not implemented")
}
func (UnimplementedEscrowServiceServer) GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBalance not implemented")
}
func (UnimplementedEscrowServiceServer) ListEntries(context.Context, *ListEntriesRequest) (*ListEntriesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListEntries not implemented")
}
func (UnimplementedEscrowServiceServer) SetFeePercentage(context.Context, *FeePercentage) (*FeePercentage, error) {
	return nil, status.Error(codes.Unimplemented, "method SetFeePercentage not implemented")
}
func (UnimplementedEscrowServiceServer) GetFeePercentage(context.Context, *emptypb.Empty) (*FeePercentage, error) {
	return nil, status.Error(codes.Unimplemented, "method GetFeePercentage not implemented")
}
func (UnimplementedEscrowServiceServer) GetFeePool(context.Context, *emptypb.Empty) (*FeePoolResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetFeePool not implemented")
}
func (UnimplementedEscrowServiceServer) WithdrawFees(context.Context, *WithdrawFeesRequest) (*FeePoolResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method WithdrawFees not implemented")
}
func (UnimplementedEscrowServiceServer) mustEmbedUnimplementedEscrowServiceServer() {}

func RegisterEscrowServiceServer(s grpc.ServiceRegistrar, srv EscrowServiceServer) {
	s.RegisterService(&EscrowService_ServiceDesc, srv)
}

// handle runs one RPC behind the interceptor chain. Interceptors see the wire
// message; decoding into the typed request happens inside the chain.
func handle[W proto.Message](method string, srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor,
	in W, serve func(EscrowServiceServer, context.Context, W) (any, error)) (any, error) {
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return serve(srv.(EscrowServiceServer), ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FullMethod(method),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		typed, ok := req.(W)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "invalid request type")
		}
		return serve(srv.(EscrowServiceServer), ctx, typed)
	}
	return interceptor(ctx, in, info, handler)
}

func unary[Req, Resp Message](method string, newReq func() Req, call func(EscrowServiceServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	serve := func(srv EscrowServiceServer, ctx context.Context, wire *structpb.Struct) (any, error) {
		req := newReq()
		if err := req.FromStruct(wire); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		resp, err := call(srv, ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.ToStruct(), nil
	}
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			return handle(method, srv, ctx, dec, interceptor, &structpb.Struct{}, serve)
		},
	}
}

func unaryEmpty[Resp Message](method string, call func(EscrowServiceServer, context.Context, *emptypb.Empty) (Resp, error)) grpc.MethodDesc {
	serve := func(srv EscrowServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
		resp, err := call(srv, ctx, in)
		if err != nil {
			return nil, err
		}
		return resp.ToStruct(), nil
	}
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			return handle(method, srv, ctx, dec, interceptor, &emptypb.Empty{}, serve)
		},
	}
}

var EscrowService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EscrowServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateEscrow", func() *CreateEscrowRequest { return new(CreateEscrowRequest) }, EscrowServiceServer.CreateEscrow),
		unary("Deposit", func() *DepositRequest { return new(DepositRequest) }, EscrowServiceServer.Deposit),
		unary("ActivateRental", newEscrowIdRequest, EscrowServiceServer.ActivateRental),
		unary("ReleaseToLender", newEscrowIdRequest, EscrowServiceServer.ReleaseToLender),
		unary("RaiseDispute", func() *RaiseDisputeRequest { return new(RaiseDisputeRequest) }, EscrowServiceServer.RaiseDispute),
		unary("ResolveDispute", func() *ResolveDisputeRequest { return new(ResolveDisputeRequest) }, EscrowServiceServer.ResolveDispute),
		unary("CancelEscrow", newEscrowIdRequest, EscrowServiceServer.CancelEscrow),
		unary("GetEscrow", newEscrowIdRequest, EscrowServiceServer.GetEscrow),
		unary("GetUserEscrows", func() *GetUserEscrowsRequest { return new(GetUserEscrowsRequest) }, EscrowServiceServer.GetUserEscrows),
		unary("ListEvents", newEscrowIdRequest, EscrowServiceServer.ListEvents),
		unary("GetBalance", func() *GetBalanceRequest { return new(GetBalanceRequest) }, EscrowServiceServer.GetBalance),
		unary("ListEntries", func() *ListEntriesRequest { return new(ListEntriesRequest) }, EscrowServiceServer.ListEntries),
		unary("SetFeePercentage", func() *FeePercentage { return new(FeePercentage) }, EscrowServiceServer.SetFeePercentage),
		unaryEmpty("GetFeePercentage", EscrowServiceServer.GetFeePercentage),
		unaryEmpty("GetFeePool", EscrowServiceServer.GetFeePool),
		unary("WithdrawFees", func() *WithdrawFeesRequest { return new(WithdrawFeesRequest) }, EscrowServiceServer.WithdrawFees),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rentalescrow/v1/escrow.proto",
}

func newEscrowIdRequest() *EscrowIdRequest {
	return new(EscrowIdRequest)
}

type EscrowServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewEscrowServiceClient(cc grpc.ClientConnInterface) *EscrowServiceClient {
	return &EscrowServiceClient{cc: cc}
}

func invoke[Resp Message](ctx context.Context, cc grpc.ClientConnInterface, method string, in proto.Message, out Resp, opts []grpc.CallOption) (Resp, error) {
	wire := &structpb.Struct{}
	if err := cc.Invoke(ctx, FullMethod(method), in, wire, opts...); err != nil {
		var zero Resp
		return zero, err
	}
	if err := out.FromStruct(wire); err != nil {
		var zero Resp
		return zero, status.Errorf(codes.Internal, "decode %s response: %v", method, err)
	}
	return out, nil
}

func (c *EscrowServiceClient) CreateEscrow(ctx context.Context, in *CreateEscrowRequest, opts ...grpc.CallOption) (*EscrowResponse, error) {
	return invoke(ctx, c.cc, "CreateEscrow", in.ToStruct(), new(EscrowResponse), opts)
}
func (c *EscrowServiceClient) Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*EscrowResponse, error) {
	return invoke(ctx, c.cc, "Deposit", in.ToStruct(), new(EscrowResponse), opts)
}
func (c *EscrowServiceClient) ActivateRental(ctx context.Context, in *EscrowIdRequest, opts ...grpc.CallOption) (*EscrowResponse, error) {
	return invoke(ctx, c.cc, "ActivateRental", in.ToStruct(), new(EscrowResponse), opts)
}
func (c *EscrowServiceClient) ReleaseToLender(ctx context.Context, in *EscrowIdRequest, opts ...grpc.CallOption) (*EscrowResponse, error) {
	return invoke(ctx, c.cc, "ReleaseToLender", in.ToStruct(), new(EscrowResponse), opts)
}
func (c *EscrowServiceClient) RaiseDispute(ctx context.Context, in *RaiseDisputeRequest, opts ...grpc.CallOption) (*EscrowResponse, error) {
	return invoke(ctx, c.cc, "RaiseDispute", in.ToStruct(), new(EscrowResponse), opts)
}
func (c *EscrowServiceClient) ResolveDispute(ctx context.Context, in *ResolveDisputeRequest, opts ...grpc.CallOption) (*EscrowResponse, error) {
	return invoke(ctx, c.cc, "ResolveDispute", in.ToStruct(), new(EscrowResponse), opts)
}
func (c *EscrowServiceClient) CancelEscrow(ctx context.Context, in *EscrowIdRequest, opts ...grpc.CallOption) (*EscrowResponse, error) {
	return invoke(ctx, c.cc, "CancelEscrow", in.ToStruct(), new(EscrowResponse), opts)
}
func (c *EscrowServiceClient) GetEscrow(ctx context.Context, in *EscrowIdRequest, opts ...grpc.CallOption) (*EscrowResponse, error) {
	return invoke(ctx, c.cc, "GetEscrow", in.ToStruct(), new(EscrowResponse), opts)
}
func (c *EscrowServiceClient) GetUserEscrows(ctx context.Context, in *GetUserEscrowsRequest, opts ...grpc.CallOption) (*GetUserEscrowsResponse, error) {
	return invoke(ctx, c.cc, "GetUserEscrows", in.ToStruct(), new(GetUserEscrowsResponse), opts)
}
func (c *EscrowServiceClient) ListEvents(ctx context.Context, in *EscrowIdRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke(ctx, c.cc, "ListEvents", in.ToStruct(), new(ListEventsResponse), opts)
}
func (c *EscrowServiceClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	return invoke(ctx, c.cc, "GetBalance", in.ToStruct(), new(GetBalanceResponse), opts)
}
func (c *EscrowServiceClient) ListEntries(ctx context.Context, in *ListEntriesRequest, opts ...grpc.CallOption) (*ListEntriesResponse, error) {
	return invoke(ctx, c.cc, "ListEntries", in.ToStruct(), new(ListEntriesResponse), opts)
}
func (c *EscrowServiceClient) SetFeePercentage(ctx context.Context, in *FeePercentage, opts ...grpc.CallOption) (*FeePercentage, error) {
	return invoke(ctx, c.cc, "SetFeePercentage", in.ToStruct(), new(FeePercentage), opts)
}
func (c *EscrowServiceClient) GetFeePercentage(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*FeePercentage, error) {
	return invoke(ctx, c.cc, "GetFeePercentage", in, new(FeePercentage), opts)
}
func (c *EscrowServiceClient) GetFeePool(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*FeePoolResponse, error) {
	return invoke(ctx, c.cc, "GetFeePool", in, new(FeePoolResponse), opts)
}
func (c *EscrowServiceClient) WithdrawFees(ctx context.Context, in *WithdrawFeesRequest, opts ...grpc.CallOption) (*FeePoolResponse, error) {
	return invoke(ctx, c.cc, "WithdrawFees", in.ToStruct(), new(FeePoolResponse), opts)
}
