// Package bt is a small behavior tree engine. Trees are stateless and may
// be shared between agents; everything that changes while a tree runs
// lives in the agent's Blackboard.
package bt

import (
	"fmt"
	"log/slog"
)

type Status int

const (
	Success Status = iota
	Failure
	Running
	Error
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Running:
		return "running"
	case Error:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Node is one tree node. Nodes must be pointers or otherwise comparable,
// since the blackboard keys node memory by node.
type Node interface {
	Tick(c *Context) Status
}

// Opener is implemented by nodes that set up memory when they start
// running.
type Opener interface {
	Open(c *Context)
}

// Closer is implemented by nodes that clean up when they finish or are
// abandoned by their parent.
type Closer interface {
	Close(c *Context)
}

// Context is the state of a single Tree.Tick.
type Context struct {
	Tree       *Tree
	Target     any
	Blackboard *Blackboard
	// Now is the agent's clock in seconds.
	Now float64

	open  []Node
	count int
}

// Memory returns n's memory for this tree.
func (c *Context) Memory(n Node) Memory {
	return c.Blackboard.NodeMemory(c.Tree, n)
}

// Run ticks n with open and close bookkeeping. Composite nodes run their
// children through it.
func Run(c *Context, n Node) Status {
	c.count++
	c.open = append(c.open, n)
	c.Tree.trace("enter", n)

	state := c.Blackboard.tree(c.Tree)
	if !state.open[n] {
		state.open[n] = true
		c.Tree.trace("open", n)
		if o, ok := n.(Opener); ok {
			o.Open(c)
		}
	}

	status := n.Tick(c)
	if status != Running {
		c.close(n)
	}
	c.Tree.trace("exit", n)
	return status
}

func (c *Context) close(n Node) {
	for i := len(c.open) - 1; i >= 0; i-- {
		if c.open[i] == n {
			c.open = append(c.open[:i], c.open[i+1:]...)
			break
		}
	}
	delete(c.Blackboard.tree(c.Tree).open, n)
	c.Tree.trace("close", n)
	if cl, ok := n.(Closer); ok {
		cl.Close(c)
	}
}

// Tree is a root node plus an optional trace hook.
type Tree struct {
	Name string
	root Node

	// Trace, when set, sees every lifecycle step of every node.
	Trace func(event string, n Node)
}

func New(name string, root Node) *Tree {
	return &Tree{Name: name, root: root}
}

// Tick runs the tree once for target. Nodes left open by the previous
// tick that this tick did not reach are closed.
func (t *Tree) Tick(target any, bb *Blackboard, now float64) Status {
	c := &Context{Tree: t, Target: target, Blackboard: bb, Now: now}
	status := Run(c, t.root)

	state := bb.tree(t)
	reached := make(map[Node]bool, len(c.open))
	for _, n := range c.open {
		reached[n] = true
	}
	for _, n := range state.lastOpen {
		if !reached[n] && state.open[n] {
			c.close(n)
		}
	}
	state.lastOpen = append(state.lastOpen[:0], c.open...)
	state.nodeCount = c.count
	return status
}

func (t *Tree) trace(event string, n Node) {
	if t.Trace != nil {
		t.Trace(event, n)
	}
}

// SlogTrace logs node lifecycle steps at debug level.
func SlogTrace(tree string) func(string, Node) {
	return func(event string, n Node) {
		slog.Debug("bt", "tree", tree, "event", event, "node", NameOf(n))
	}
}

// NameOf returns a node's Name when it has one, else its Go type.
func NameOf(n Node) string {
	if named, ok := n.(interface{ NodeName() string }); ok && named.NodeName() != "" {
		return named.NodeName()
	}
	return fmt.Sprintf("%T", n)
}
