package pipeline

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/observability"
	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/transform"
)

// Executor runs pipeline graphs. It holds only read-only collaborators, so
// one Executor may run any number of graphs concurrently.
type Executor struct {
	Registry *transform.Registry
	Adapters map[string]Adapter
	Logger   *log.Logger
}

// NewExecutor creates an executor. A nil registry selects
// [transform.Default]; a nil logger discards output.
func NewExecutor(reg *transform.Registry, logger *log.Logger, adapters ...Adapter) *Executor {
	if reg == nil {
		reg = transform.Default()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	e := &Executor{
		Registry: reg,
		Adapters: make(map[string]Adapter, len(adapters)),
		Logger:   logger,
	}
	for _, a := range adapters {
		e.Adapters[a.Key()] = a
	}
	return e
}

// Known reports whether algorithm is a registered transform or adapter.
func (e *Executor) Known(algorithm string) bool {
	if _, ok := e.Adapters[algorithm]; ok {
		return true
	}
	return e.Registry.Has(algorithm)
}

// Infos lists every algorithm the executor can run: registered transforms
// followed by adapters sorted by key. Adapters may describe themselves by
// implementing Info() transform.Info.
func (e *Executor) Infos() []transform.Info {
	infos := e.Registry.Infos()
	keys := make([]string, 0, len(e.Adapters))
	for k := range e.Adapters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		info := transform.Info{Key: k, Family: transform.FamilyAdapter}
		if d, ok := e.Adapters[k].(interface{ Info() transform.Info }); ok {
			info = d.Info()
		}
		infos = append(infos, info)
	}
	return infos
}

// Validate checks g against the structural rules and the algorithms this
// executor can run. See [Validate].
func (e *Executor) Validate(g *graph.Graph) error {
	return Validate(g, e.Known)
}

// Execute validates g and runs it on src, returning the output buffer.
// src is never modified.
func (e *Executor) Execute(ctx context.Context, g *graph.Graph, src *raster.Buffer) (*raster.Buffer, error) {
	return e.NewExecution(g).Run(ctx, src)
}

// State is the lifecycle stage of an [Execution].
type State int

const (
	StateUnvalidated State = iota
	StateValidated
	StateExecuting
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnvalidated:
		return "unvalidated"
	case StateValidated:
		return "validated"
	case StateExecuting:
		return "executing"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// NodeStat records the run time of one node.
type NodeStat struct {
	NodeID    string
	Algorithm string
	Duration  time.Duration
}

// Execution is one run of a graph. It moves from unvalidated through
// validated and executing to complete or failed. Its cache of node outputs
// is private to the run and cleared at the start of every Run.
type Execution struct {
	ID    string
	State State
	Order []string
	Nodes []NodeStat
	Err   error

	exec  *Executor
	graph *graph.Graph
	cache map[string]*raster.Buffer
}

// NewExecution prepares a run of g.
func (e *Executor) NewExecution(g *graph.Graph) *Execution {
	return &Execution{
		ID:    uuid.NewString(),
		State: StateUnvalidated,
		exec:  e,
		graph: g,
	}
}

// Validate moves an unvalidated execution to validated, or to failed with
// a *errors.ValidationError. Calling it again returns the earlier result.
func (x *Execution) Validate() error {
	switch x.State {
	case StateUnvalidated:
	case StateFailed:
		return x.Err
	default:
		return nil
	}
	if err := x.exec.Validate(x.graph); err != nil {
		return x.fail(err)
	}
	order, err := TopologicalOrder(x.graph)
	if err != nil {
		return x.fail(err)
	}
	x.Order = order
	x.State = StateValidated
	return nil
}

func (x *Execution) fail(err error) error {
	x.State = StateFailed
	x.Err = err
	return err
}

// Run executes the graph on src. An unvalidated execution is validated
// first. Nodes run in topological order; the first failure aborts the run
// with a *errors.NodeError naming the node. Cancellation of ctx is checked
// between nodes.
func (x *Execution) Run(ctx context.Context, src *raster.Buffer) (*raster.Buffer, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}
	if x.State != StateValidated && x.State != StateComplete {
		return nil, herrors.New(herrors.ErrCodeInternal, "execution %s is %s", x.ID, x.State)
	}
	if err := src.Validate(); err != nil {
		return nil, x.fail(err)
	}

	logger := x.exec.Logger
	hooks := observability.Pipeline()
	x.State = StateExecuting
	x.cache = make(map[string]*raster.Buffer, len(x.Order))
	x.Nodes = x.Nodes[:0]
	start := time.Now()
	hooks.OnExecuteStart(ctx, x.ID, len(x.Order))

	err := x.runNodes(ctx, src)
	elapsed := time.Since(start)
	hooks.OnExecuteComplete(ctx, x.ID, elapsed, err)
	if err != nil {
		x.cache = nil
		logger.Debug("execution failed", "run", x.ID, "err", err)
		return nil, x.fail(err)
	}

	out := x.output()
	x.cache = nil
	if out == src {
		out = src.Clone()
	}
	x.State = StateComplete
	logger.Info("executed pipeline", "run", x.ID, "nodes", len(x.Order), "duration", elapsed)
	return out, nil
}

func (x *Execution) runNodes(ctx context.Context, src *raster.Buffer) error {
	for _, id := range x.Order {
		if err := ctx.Err(); err != nil {
			return herrors.Wrap(herrors.ErrCodeCanceled, err, "execution canceled before node %q", id)
		}
		n, _ := x.graph.Node(id)
		if n.Kind == graph.KindInput {
			x.cache[id] = src
			continue
		}

		in, ok := x.cache[x.graph.Parents(id)[0]]
		if !ok {
			panic(fmt.Sprintf("pipeline: predecessor of node %q has no result", id))
		}
		if n.Kind == graph.KindOutput {
			x.cache[id] = in
			continue
		}

		start := time.Now()
		out, err := x.apply(ctx, n, in.Clone())
		elapsed := time.Since(start)
		observability.Pipeline().OnNodeComplete(ctx, x.ID, n.ID, n.Algorithm, elapsed, err)
		if err == nil && out == nil {
			err = herrors.New(herrors.ErrCodeInternal, "%s returned no buffer", n.Algorithm)
		}
		if err != nil {
			return &herrors.NodeError{NodeID: n.ID, Algorithm: n.Algorithm, Err: err}
		}
		x.Nodes = append(x.Nodes, NodeStat{NodeID: n.ID, Algorithm: n.Algorithm, Duration: elapsed})
		x.exec.Logger.Debug("applied node", "node", n.ID, "algorithm", n.Algorithm, "duration", elapsed)
		x.cache[id] = out
	}
	return nil
}

func (x *Execution) apply(ctx context.Context, n *graph.Node, src *raster.Buffer) (*raster.Buffer, error) {
	p := transform.Params(n.Params)
	if a, ok := x.exec.Adapters[n.Algorithm]; ok {
		region, err := Region(n.Algorithm, src, p)
		if err != nil {
			return nil, err
		}
		return a.Apply(ctx, src, region, p)
	}
	return x.exec.Registry.Apply(n.Algorithm, src, p)
}

// output returns the cached result of the first output node. Validation
// guarantees it exists; a missing result is an executor bug.
func (x *Execution) output() *raster.Buffer {
	outputs := x.graph.NodesOfKind(graph.KindOutput)
	if len(outputs) == 0 {
		panic("pipeline: validated graph has no output node")
	}
	out, ok := x.cache[outputs[0].ID]
	if !ok || out == nil {
		panic(fmt.Sprintf("pipeline: output node %q has no result after execution", outputs[0].ID))
	}
	return out
}
