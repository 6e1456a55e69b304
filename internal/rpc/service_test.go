package rpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
)

type echoHandler struct{}

func (echoHandler) ExecuteSkill(ctx context.Context, req *SkillRequest) (*SkillResponse, error) {
	return &SkillResponse{Result: "echo:" + req.Name}, nil
}

func TestExecuteSkillHandlerNoInterceptor(t *testing.T) {
	called := false
	dec := func(v interface{}) error {
		req := v.(*SkillRequest)
		req.Name = "url_fetch"
		called = true
		return nil
	}

	out, err := executeSkillHandler(echoHandler{}, context.Background(), dec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("decoder was not invoked")
	}
	resp, ok := out.(*SkillResponse)
	if !ok || resp.Result != "echo:url_fetch" {
		t.Fatalf("resp = %+v", out)
	}
}

func TestExecuteSkillHandlerWithInterceptor(t *testing.T) {
	dec := func(v interface{}) error {
		v.(*SkillRequest).Name = "web_search"
		return nil
	}

	var sawMethod string
	interceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		sawMethod = info.FullMethod
		return handler(ctx, req)
	}

	out, err := executeSkillHandler(echoHandler{}, context.Background(), dec, interceptor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawMethod != "/"+ServiceName+"/ExecuteSkill" {
		t.Fatalf("full method = %q", sawMethod)
	}
	resp, ok := out.(*SkillResponse)
	if !ok || resp.Result != "echo:web_search" {
		t.Fatalf("resp = %+v", out)
	}
}

func TestServiceDescShape(t *testing.T) {
	if ServiceDesc.ServiceName != ServiceName {
		t.Fatalf("service name = %q", ServiceDesc.ServiceName)
	}
	if len(ServiceDesc.Methods) != 1 || ServiceDesc.Methods[0].MethodName != "ExecuteSkill" {
		t.Fatalf("methods = %+v", ServiceDesc.Methods)
	}
}
