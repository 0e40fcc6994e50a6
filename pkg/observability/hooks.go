// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about pipeline execution, cache operations, and HTTP API
// requests.
//
// Hooks are read on every node execution, so the registry is an
// immutable snapshot swapped atomically; readers never lock.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnExecuteStart(ctx, runID, nodeCount)
//	// ... run nodes ...
//	observability.Pipeline().OnExecuteComplete(ctx, runID, duration, err)
//
// Frame sequences additionally report each finished frame through
// OnFrameComplete, from worker goroutines.
package observability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// Hook Interfaces
// =============================================================================

// PipelineHooks receives events from the graph executor.
type PipelineHooks interface {
	// Execution events
	OnExecuteStart(ctx context.Context, runID string, nodeCount int)
	OnExecuteComplete(ctx context.Context, runID string, duration time.Duration, err error)

	// Node events
	OnNodeComplete(ctx context.Context, runID, nodeID, algorithm string, duration time.Duration, err error)

	// OnFrameComplete reports frame index of total in a sequence. It may be
	// called concurrently.
	OnFrameComplete(ctx context.Context, index, total int, duration time.Duration, err error)
}

// CacheHooks receives events from the artifact cache. keyType is
// "artifact" or "frame".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP API server.
type HTTPHooks interface {
	// OnRequest records an incoming HTTP request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records the response written for a request.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks ignores every event. Embed it to implement a subset.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnExecuteStart(context.Context, string, int)                     {}
func (NoopPipelineHooks) OnExecuteComplete(context.Context, string, time.Duration, error) {}
func (NoopPipelineHooks) OnFrameComplete(context.Context, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnNodeComplete(context.Context, string, string, string, time.Duration, error) {
}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Registry
// =============================================================================

type registry struct {
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var noop = registry{
	pipeline: NoopPipelineHooks{},
	cache:    NoopCacheHooks{},
	http:     NoopHTTPHooks{},
}

var (
	current atomic.Pointer[registry]
	writeMu sync.Mutex
)

func init() {
	r := noop
	current.Store(&r)
}

// update applies fn to a copy of the registry and publishes the copy.
func update(fn func(*registry)) {
	writeMu.Lock()
	defer writeMu.Unlock()
	next := *current.Load()
	fn(&next)
	current.Store(&next)
}

// SetPipelineHooks registers pipeline hooks. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(r *registry) { r.pipeline = h })
	}
}

// SetCacheHooks registers cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(r *registry) { r.cache = h })
	}
}

// SetHTTPHooks registers HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(r *registry) { r.http = h })
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return current.Load().pipeline }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return current.Load().cache }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return current.Load().http }

// Reset restores the no-op hooks.
func Reset() {
	update(func(r *registry) { *r = noop })
}
