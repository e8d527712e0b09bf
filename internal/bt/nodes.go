package bt

import "log/slog"

const keyRunningChild = "running_child"

// Sequence fails or runs on the first child that does not succeed, and
// succeeds when every child does.
type Sequence struct {
	Name     string
	Children []Node
}

func NewSequence(name string, children ...Node) *Sequence {
	return &Sequence{Name: name, Children: children}
}

func (s *Sequence) NodeName() string { return s.Name }

func (s *Sequence) Tick(c *Context) Status {
	for _, child := range s.Children {
		if status := Run(c, child); status != Success {
			return status
		}
	}
	return Success
}

// MemSequence is a Sequence that resumes from the child that was running
// on the previous tick instead of starting over.
type MemSequence struct {
	Name     string
	Children []Node
}

func NewMemSequence(name string, children ...Node) *MemSequence {
	return &MemSequence{Name: name, Children: children}
}

func (s *MemSequence) NodeName() string { return s.Name }

func (s *MemSequence) Open(c *Context) {
	c.Memory(s)[keyRunningChild] = 0
}

func (s *MemSequence) Tick(c *Context) Status {
	mem := c.Memory(s)
	for i := mem.Int(keyRunningChild); i < len(s.Children); i++ {
		status := Run(c, s.Children[i])
		if status == Success {
			continue
		}
		if status == Running {
			mem[keyRunningChild] = i
		}
		return status
	}
	return Success
}

// Priority succeeds or runs on the first child that does not fail, and
// fails when every child does.
type Priority struct {
	Name     string
	Children []Node
}

func NewPriority(name string, children ...Node) *Priority {
	return &Priority{Name: name, Children: children}
}

func (p *Priority) NodeName() string { return p.Name }

func (p *Priority) Tick(c *Context) Status {
	for _, child := range p.Children {
		if status := Run(c, child); status != Failure {
			return status
		}
	}
	return Failure
}

// MemPriority is a Priority that resumes from the child that was running
// on the previous tick.
type MemPriority struct {
	Name     string
	Children []Node
}

func NewMemPriority(name string, children ...Node) *MemPriority {
	return &MemPriority{Name: name, Children: children}
}

func (p *MemPriority) NodeName() string { return p.Name }

func (p *MemPriority) Open(c *Context) {
	c.Memory(p)[keyRunningChild] = 0
}

func (p *MemPriority) Tick(c *Context) Status {
	mem := c.Memory(p)
	for i := mem.Int(keyRunningChild); i < len(p.Children); i++ {
		status := Run(c, p.Children[i])
		if status == Failure {
			continue
		}
		if status == Running {
			mem[keyRunningChild] = i
		}
		return status
	}
	return Failure
}

// Wait runs for Seconds of agent time after it opens, then succeeds.
type Wait struct {
	Seconds float64
}

const keyEndTime = "end_time"

func (w *Wait) Open(c *Context) {
	c.Memory(w)[keyEndTime] = c.Now + w.Seconds
}

func (w *Wait) Tick(c *Context) Status {
	if c.Now >= c.Memory(w).Float(keyEndTime) {
		return Success
	}
	return Running
}

// Say logs Message at info and succeeds.
type Say struct {
	Message string
}

func (s *Say) Tick(c *Context) Status {
	slog.Info(s.Message, "tree", c.Tree.Name)
	return Success
}

// Action adapts a function into a leaf node.
type Action struct {
	Name string
	Fn   func(c *Context) Status
}

func (a *Action) NodeName() string { return a.Name }

func (a *Action) Tick(c *Context) Status {
	if a.Fn == nil {
		return Error
	}
	return a.Fn(c)
}
