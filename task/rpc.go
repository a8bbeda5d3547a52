package task

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "flocksim.v1.SimulationService"

	GetStatusProcedure   = "/" + ServiceName + "/GetStatus"
	GetMetricsProcedure  = "/" + ServiceName + "/GetMetrics"
	GetVehiclesProcedure = "/" + ServiceName + "/GetVehicles"
	GetResultProcedure   = "/" + ServiceName + "/GetResult"
	StopProcedure        = "/" + ServiceName + "/Stop"
)

// Server 仿真查询与控制服务
// 说明：请求与响应均使用通用的Struct消息，字段名与JSON输出一致
type Server struct {
	runner *Runner
}

// NewServer 创建服务
func NewServer(runner *Runner) *Server {
	return &Server{runner: runner}
}

// NewHandler 创建服务的HTTP处理器
// 返回：挂载路径与处理器
func NewHandler(runner *Runner, opts ...connect.HandlerOption) (string, http.Handler) {
	s := NewServer(runner)
	mux := http.NewServeMux()
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, s.GetStatus, opts...))
	mux.Handle(GetMetricsProcedure, connect.NewUnaryHandler(GetMetricsProcedure, s.GetMetrics, opts...))
	mux.Handle(GetVehiclesProcedure, connect.NewUnaryHandler(GetVehiclesProcedure, s.GetVehicles, opts...))
	mux.Handle(GetResultProcedure, connect.NewUnaryHandler(GetResultProcedure, s.GetResult, opts...))
	mux.Handle(StopProcedure, connect.NewUnaryHandler(StopProcedure, s.Stop, opts...))
	return "/" + ServiceName + "/", mux
}

func (s *Server) current() (*Simulation, error) {
	sim := s.runner.Current()
	if sim == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no simulation"))
	}
	return sim, nil
}

// GetStatus 运行状态与进度
func (s *Server) GetStatus(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	sim, err := s.current()
	if err != nil {
		return nil, err
	}
	step, t, progress := sim.Progress()
	cfg := sim.Config()
	res, err := structpb.NewStruct(map[string]any{
		"id":         sim.ID(),
		"status":     sim.Status().String(),
		"step":       step,
		"t":          t,
		"progress":   progress,
		"scenario":   cfg.Scenario,
		"flocking":   cfg.Flocking,
		"weather":    cfg.Weather.String(),
		"fleet_size": cfg.FleetSize(),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(res), nil
}

// GetMetrics 最新一步的指标
func (s *Server) GetMetrics(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	sim, err := s.current()
	if err != nil {
		return nil, err
	}
	res, err := toStruct(sim.Latest())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(res), nil
}

// GetVehicles 车辆快照
// 参数：请求中的ids为车辆ID列表，缺省时返回全部车辆
// 返回：vehicles为找到的车辆，missing为不存在的ID
func (s *Server) GetVehicles(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	sim, err := s.current()
	if err != nil {
		return nil, err
	}
	var ids []int32
	if v, ok := req.Msg.GetFields()["ids"]; ok {
		list := v.GetListValue()
		if list == nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("ids must be a list"))
		}
		if ids, err = parseIDs(list); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
	}
	found, missing := sim.Vehicles(ids)
	res, err := toStruct(map[string]any{
		"vehicles": found,
		"missing":  missing,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(res), nil
}

// GetResult 仿真结果，不含指标历史
func (s *Server) GetResult(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	sim, err := s.current()
	if err != nil {
		return nil, err
	}
	result, ok := sim.Result()
	if !ok {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("simulation %s is %v", sim.ID(), sim.Status()))
	}
	result.History = nil
	res, err := toStruct(result)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(res), nil
}

// Stop 停止当前仿真
func (s *Server) Stop(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	if _, err := s.current(); err != nil {
		return nil, err
	}
	s.runner.Stop()
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// parseIDs 将列表中的数值转换为车辆ID，非整数或超出int32范围时返回错误
func parseIDs(list *structpb.ListValue) ([]int32, error) {
	ids := make([]int32, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("ids[%d] = %v is not a number", i, v.AsInterface())
		}
		f := n.NumberValue
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return nil, fmt.Errorf("ids[%d] = %v is not an int32", i, f)
		}
		ids = append(ids, int32(f))
	}
	return ids, nil
}

// toStruct 经JSON把任意值转换为Struct
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
