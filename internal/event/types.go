package event

const (
	EventPauseToggled  = "pause.toggled"
	EventEntitySpawned = "entity.spawned"
	EventEntityKilled  = "entity.killed"
	EventInputUnmapped = "input.unmapped"
)

type PauseEvent struct {
	Playing bool
	Frame   uint64
}

type EntityEvent struct {
	EntityID   string
	Kind       string
	Controlled bool
}

type UnmappedKeyEvent struct {
	Code int
}
