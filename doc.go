// Package attention allocates a bounded attention budget across the tasks of
// autonomous agents and keeps an append-only history of every agent's
// attention state.
//
// The root package exposes the Service facade that wires the building blocks
// found in the sub-packages:
//
//   - model/load         – cognitive load assessment
//   - service/allocator  – budget split between primary and secondary tasks
//   - service/queue      – four tier priority queue
//   - service/filter     – distraction filtering and deep focus
//   - service/feed       – change feed over the messaging transports
//   - service/notifier   – subscriptions and monitoring
//   - service/analytics  – focus patterns, load trends and recommendations
//   - service/tuner      – scheduled adaptation of filter thresholds
//
// A typical host creates the service, allocates and watches:
//
//	srv, _ := attention.New()
//	defer srv.Close()
//	allocation, _ := srv.AllocateAttention(ctx, &model.Request{AgentID: "agent-1", Primary: task})
//	id, _ := srv.StartMonitoring(ctx, "agent-1", onChange, onOverload)
//	defer srv.StopMonitoring("agent-1")
//
// Configuration is read with LoadConfig from YAML and ATTENTION_* environment
// variables, or built in code starting from DefaultConfig.
package attention
