// Package rpc defines the minimal gRPC service a remote skill process
// implements: a single ExecuteSkill call carrying the same JSON argument
// and result shapes the in-process skill.Skill interface already uses.
// Messages are exchanged with the "json" codec (codec.go) rather than
// generated protobuf types, since the payload is always the tool-call
// JSON itself.
package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

const ServiceName = "rpc.SkillService"

// SkillRequest is what the caller (internal/skill/remote) sends.
type SkillRequest struct {
	Name     string `json:"name"`
	Input    []byte `json:"input"`
	Jid      string `json:"jid"`
	BasePath string `json:"base_path"`
}

// SkillResponse is what the remote skill process returns.
type SkillResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Handler is implemented by whatever serves ExecuteSkill on the remote
// side; this package's Server adapts a skill.Registry to it.
type Handler interface {
	ExecuteSkill(ctx context.Context, req *SkillRequest) (*SkillResponse, error)
}

func executeSkillHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SkillRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	h := srv.(Handler)
	if interceptor == nil {
		return h.ExecuteSkill(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fmt.Sprintf("/%s/ExecuteSkill", ServiceName)}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return h.ExecuteSkill(ctx, req.(*SkillRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// ServiceDesc is registered on the server with grpc.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ExecuteSkill",
			Handler:    executeSkillHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skill.proto",
}
