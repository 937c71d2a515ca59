package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/olyamironova/limitbook/internal/api/dto"
	"github.com/olyamironova/limitbook/internal/core"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/olyamironova/limitbook/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCServer implements limitbook.v1.OrderBook. Messages are
// google.protobuf.Struct values carrying the same fields as the HTTP JSON
// bodies.
type GRPCServer struct {
	Eng      *core.Engine
	depth    int
	maxDepth int
}

var _ OrderBookServer = (*GRPCServer)(nil)

func NewGRPCServer(eng *core.Engine, depth, maxDepth int) *GRPCServer {
	if depth <= 0 {
		depth = 10
	}
	if maxDepth < depth {
		maxDepth = depth
	}
	return &GRPCServer{Eng: eng, depth: depth, maxDepth: maxDepth}
}

func (s *GRPCServer) SubmitOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.SubmitOrderRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	o, err := req.Parse()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.Eng.Submit(ctx, o.Type, o.Side, o.Price, o.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		logger.Error(ctx, "grpc submit failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return toStruct(dto.NewSubmitOrderResponse(res))
}

func (s *GRPCServer) GetBook(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	depth := s.depth
	if v, ok := in.GetFields()["depth"]; ok {
		n := v.GetNumberValue()
		if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum || n < 0 || n != float64(int(n)) {
			return nil, status.Error(codes.InvalidArgument, "depth must be a non-negative integer")
		}
		depth = min(int(n), s.maxDepth)
	}
	return toStruct(dto.NewBookResponse(s.Eng.Snapshot(depth)))
}

func (s *GRPCServer) ClearBook(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	s.Eng.Reset(ctx)
	return toStruct(dto.StatusResponse{Status: "cleared"})
}

func fromStruct(in *structpb.Struct, out any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
