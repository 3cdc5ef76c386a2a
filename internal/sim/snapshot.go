package sim

import "time"

// DropState is the serializable form of a Drop.
type DropState struct {
	Drop
	AffectedObstacles []int `json:"affected_obstacles"`
}

// Snapshot captures everything needed to resume a simulation elsewhere. The
// random source is not part of it; Restore takes a fresh one.
type Snapshot struct {
	Width          float64        `json:"width"`
	Height         float64        `json:"height"`
	Config         Config         `json:"config"`
	Enabled        bool           `json:"enabled"`
	Paused         bool           `json:"paused"`
	Frame          uint64         `json:"frame"`
	Obstacles      []Obstacle     `json:"obstacles"`
	ObstacleIDs    map[string]int `json:"obstacle_ids"`
	NextObstacleID int            `json:"next_obstacle_id"`
	Drops          []DropState    `json:"drops"`
	TakenAt        time.Time      `json:"taken_at"`
}

// Snapshot copies the current state.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Width:          s.width,
		Height:         s.height,
		Config:         s.cfg,
		Enabled:        s.enabled,
		Paused:         s.paused,
		Frame:          s.frame,
		Obstacles:      s.Obstacles(),
		ObstacleIDs:    make(map[string]int, len(s.obstacleIDs)),
		NextObstacleID: s.nextObstacleID,
		Drops:          make([]DropState, len(s.drops)),
		TakenAt:        time.Now(),
	}
	for k, v := range s.obstacleIDs {
		snap.ObstacleIDs[k] = v
	}
	for i, d := range s.drops {
		snap.Drops[i] = DropState{Drop: *d, AffectedObstacles: d.AffectedIDs()}
		snap.Drops[i].affected = nil
	}
	return snap
}

// Restore rebuilds a simulation from a snapshot.
func Restore(snap Snapshot, rng Random) (*Simulation, error) {
	s, err := New(snap.Config, snap.Width, snap.Height, rng)
	if err != nil {
		return nil, err
	}
	s.enabled = snap.Enabled
	s.paused = snap.Paused
	s.frame = snap.Frame
	s.nextObstacleID = snap.NextObstacleID
	for k, v := range snap.ObstacleIDs {
		s.obstacleIDs[k] = v
	}
	s.obstacles = append([]Obstacle(nil), snap.Obstacles...)

	s.drops = make([]*Drop, len(snap.Drops))
	for i, ds := range snap.Drops {
		d := ds.Drop
		d.affected = make(map[int]struct{}, len(ds.AffectedObstacles))
		for _, id := range ds.AffectedObstacles {
			d.affected[id] = struct{}{}
		}
		s.drops[i] = &d
	}
	return s, nil
}
