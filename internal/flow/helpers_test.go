package flow

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// testHost collects log lines written by logNode.
type testHost struct {
	logs  []string
	evals int
}

func hostOf(ec *ExecContext) *testHost {
	return ec.Host.(*testHost)
}

type startNode struct{}

func (startNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowOut(graph.PortNext)}
}

func (startNode) Execute(*ExecContext) Result { return Next() }

type gatedStart struct{ want string }

func (gatedStart) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowOut(graph.PortNext)}
}

func (gatedStart) Execute(*ExecContext) Result { return Next() }

func (g gatedStart) Accepts(ec *ExecContext) bool {
	ev, _ := ec.Payload.GetString("event")
	return ev == g.want
}

type logNode struct{ text string }

func (logNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn(), graph.FlowOut(graph.PortNext), graph.Inport("value", graph.TypeInt)}
}

func (n logNode) Execute(ec *ExecContext) Result {
	text := n.text
	if ec.Connected("value") {
		v, err := ec.InputInt("value")
		if err != nil {
			return Next().WithDefect(err)
		}
		text = strconv.FormatInt(v, 10)
	}
	hostOf(ec).logs = append(hostOf(ec).logs, text)
	return Next()
}

type ifNode struct{}

func (ifNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut("true"),
		graph.FlowOut("false"),
		graph.Inport("cond", graph.TypeBool),
	}
}

func (ifNode) Execute(ec *ExecContext) Result {
	b, err := ec.InputBool("cond")
	if err != nil {
		return Fail(err)
	}
	if b {
		return Branch("true")
	}
	return Branch("false")
}

type boolNode struct{ v bool }

func (boolNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outport("value", graph.TypeBool)}
}

func (n boolNode) Evaluate(ec *ExecContext) error {
	return ec.SetOutput("value", ir.IRBool(n.v))
}

// echoNode is a data node that forwards its input; two of them wired to each
// other form a data cycle.
type echoNode struct{}

func (echoNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Inport("in", graph.TypeInt), graph.Outport("out", graph.TypeInt)}
}

func (echoNode) Evaluate(ec *ExecContext) error {
	v, err := ec.InputInt("in")
	if err != nil {
		return err
	}
	return ec.SetOutput("out", ir.IRInt(v))
}

// countNode is a data node that counts its evaluations in the host.
type countNode struct{}

func (countNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outport("value", graph.TypeInt)}
}

func (countNode) Evaluate(ec *ExecContext) error {
	hostOf(ec).evals++
	return ec.SetOutput("value", ir.IRInt(int64(hostOf(ec).evals)))
}

// sumNode logs the sum of its two inputs.
type sumNode struct{}

func (sumNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut(graph.PortNext),
		graph.Inport("a", graph.TypeInt),
		graph.Inport("b", graph.TypeInt),
	}
}

func (sumNode) Execute(ec *ExecContext) Result {
	a, err := ec.InputInt("a")
	if err != nil {
		return Next().WithDefect(err)
	}
	b, err := ec.InputInt("b")
	if err != nil {
		return Next().WithDefect(err)
	}
	hostOf(ec).logs = append(hostOf(ec).logs, strconv.FormatInt(a+b, 10))
	return Next()
}

// blameNode reports a defect located at node blame and continues.
type blameNode struct{ blame int }

func (blameNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn(), graph.FlowOut(graph.PortNext)}
}

func (n blameNode) Execute(*ExecContext) Result {
	return Next().WithDefect(graph.NewDefect(graph.DefectEvaluationFailed, n.blame, "", "blamed"))
}

type produceNode struct{ v int64 }

func (produceNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn(), graph.FlowOut(graph.PortNext), graph.Outport("value", graph.TypeInt)}
}

func (n produceNode) Execute(ec *ExecContext) Result {
	if err := ec.SetOutput("value", ir.IRInt(n.v)); err != nil {
		return Fail(err)
	}
	return Next()
}

type repeatNode struct{ count int64 }

func (repeatNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn(), graph.FlowOut("loop"), graph.FlowOut("done")}
}

func (n repeatNode) Execute(ec *ExecContext) Result {
	var i int64
	if v, ok := ec.Local("i"); ok {
		i, _ = ir.AsInt(v)
	}
	if n.count < 0 || i < n.count {
		ec.SetLocal("i", ir.IRInt(i+1))
		return Loop("loop")
	}
	ec.ClearLocals()
	return Branch("done")
}

type callNode struct{ macro string }

func (callNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn(), graph.FlowOut(graph.PortNext)}
}

func (n callNode) Execute(*ExecContext) Result { return Call(n.macro) }

type returnNode struct{}

func (returnNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn()}
}

func (returnNode) Execute(*ExecContext) Result { return Return() }

type pickNode struct{}

func (pickNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn(), graph.FlowOut("picked"), graph.FlowOut("none"), graph.Outport("pick", graph.TypeInt)}
}

func (pickNode) Execute(*ExecContext) Result {
	return Await(ir.Obj(ir.O("prompt", ir.IRString("pick one"))))
}

func (pickNode) Resume(ec *ExecContext, answer Answer) Result {
	v, ok := answer.Data.GetInt("pick")
	if !ok {
		return Branch("none").WithDefect(ec.Defect(graph.DefectInvalidAnswer, "answer has no pick"))
	}
	if err := ec.SetOutput("pick", ir.IRInt(v)); err != nil {
		return Fail(err)
	}
	return Branch("picked")
}

// builder assembles graphs for tests with fail-fast errors.
type builder struct {
	t *testing.T
	g *graph.Graph
}

func newBuilder(t *testing.T, name string, kind ir.GraphKind) *builder {
	t.Helper()
	return &builder{t: t, g: graph.New(name, kind)}
}

func (b *builder) node(id int, behavior graph.Behavior) *builder {
	b.t.Helper()
	_, err := b.g.AddNode(id, "test", behavior)
	require.NoError(b.t, err)
	return b
}

func (b *builder) flow(from int, port string, to int) *builder {
	b.t.Helper()
	require.NoError(b.t, b.g.Connect(from, port, to, graph.PortPrevious))
	return b
}

func (b *builder) data(from int, fromPort string, to int, toPort string) *builder {
	b.t.Helper()
	require.NoError(b.t, b.g.Connect(from, fromPort, to, toPort))
	return b
}

func (b *builder) entry(id int) *graph.Graph {
	b.t.Helper()
	require.NoError(b.t, b.g.SetEntry(id))
	return b.g
}

func helloMacro(t *testing.T) *graph.Graph {
	return newBuilder(t, "hello", ir.KindMacro).
		node(-1, startNode{}).
		node(1, logNode{text: "Hello World!"}).
		flow(-1, graph.PortNext, 1).
		entry(-1)
}

func run(t *testing.T, g *graph.Graph, cfg Config) (*Interpreter, *testHost) {
	t.Helper()
	host := &testHost{}
	cfg.Host = host
	in := New(g, cfg)
	in.Run()
	return in, host
}
