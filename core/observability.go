package core

// PoolStats represents runtime observability state for a worker pool.
type PoolStats struct {
	ID      string
	Workers int
	Queued  int
	Active  int
	Running bool
}

// ManagerStats represents a point-in-time census of the manager's registry.
type ManagerStats struct {
	Tasks    int
	ByStatus map[Status]int
}
