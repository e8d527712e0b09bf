package bt

// Memory is a scratch map owned by one agent.
type Memory map[string]any

// Int reads an int stored under key, or 0.
func (m Memory) Int(key string) int {
	v, _ := m[key].(int)
	return v
}

// Float reads a float64 stored under key, or 0.
func (m Memory) Float(key string) float64 {
	v, _ := m[key].(float64)
	return v
}

type treeState struct {
	values    Memory
	nodes     map[Node]Memory
	open      map[Node]bool
	lastOpen  []Node
	nodeCount int
}

// Blackboard holds one agent's memory: a global map, a map per tree and a
// map per node of each tree. Not safe for concurrent use.
type Blackboard struct {
	global Memory
	trees  map[*Tree]*treeState
}

func NewBlackboard() *Blackboard {
	return &Blackboard{
		global: make(Memory),
		trees:  make(map[*Tree]*treeState),
	}
}

func (b *Blackboard) Global() Memory { return b.global }

func (b *Blackboard) TreeMemory(t *Tree) Memory { return b.tree(t).values }

func (b *Blackboard) NodeMemory(t *Tree, n Node) Memory {
	state := b.tree(t)
	m, ok := state.nodes[n]
	if !ok {
		m = make(Memory)
		state.nodes[n] = m
	}
	return m
}

// IsOpen reports whether n is mid-run in t.
func (b *Blackboard) IsOpen(t *Tree, n Node) bool {
	return b.tree(t).open[n]
}

// NodeCount is how many nodes t's last tick ran.
func (b *Blackboard) NodeCount(t *Tree) int {
	return b.tree(t).nodeCount
}

// Forget drops everything remembered for t.
func (b *Blackboard) Forget(t *Tree) {
	delete(b.trees, t)
}

func (b *Blackboard) tree(t *Tree) *treeState {
	state, ok := b.trees[t]
	if !ok {
		state = &treeState{
			values: make(Memory),
			nodes:  make(map[Node]Memory),
			open:   make(map[Node]bool),
		}
		b.trees[t] = state
	}
	return state
}
