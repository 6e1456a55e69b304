package rpc

import (
	"context"
	"fmt"
	"net"

	"github.com/fluux-agent/gateway/internal/skill"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server exposes a skill.Registry's skills to remote callers over gRPC,
// the mirror image of internal/skill/remote's client adapter.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	logger     *zap.Logger
}

type registryHandler struct {
	registry *skill.Registry
}

func (h registryHandler) ExecuteSkill(ctx context.Context, req *SkillRequest) (*SkillResponse, error) {
	s, ok := h.registry.Get(req.Name)
	if !ok {
		return &SkillResponse{Error: fmt.Sprintf("unknown skill %q", req.Name)}, nil
	}
	result, err := s.Execute(ctx, req.Input, skill.Context{Jid: req.Jid, BasePath: req.BasePath})
	if err != nil {
		return &SkillResponse{Error: err.Error()}, nil
	}
	return &SkillResponse{Result: result}, nil
}

func NewServer(addr string, registry *skill.Registry, logger *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	gs := grpc.NewServer()
	gs.RegisterService(&ServiceDesc, registryHandler{registry: registry})
	return &Server{grpcServer: gs, listener: ln, logger: logger}, nil
}

// Addr returns the listener's actual address, useful when NewServer was
// given port 0 and the caller needs the port that was actually bound.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

func (s *Server) Start() {
	s.logger.Info("starting remote skill gRPC server", zap.String("addr", s.listener.Addr().String()))
	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil {
			s.logger.Error("remote skill gRPC server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
