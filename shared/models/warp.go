// shared/models/warp.go
package models

import "time"

// Location is a teleport target inside a world. Purely data; the world plugin
// resolves it.
type Location struct {
	World string  `bson:"world" json:"World"`
	X     float64 `bson:"x" json:"X"`
	Y     float64 `bson:"y" json:"Y"`
	Z     float64 `bson:"z" json:"Z"`
	Yaw   float32 `bson:"yaw" json:"Yaw"`
	Pitch float32 `bson:"pitch" json:"Pitch"`
}

// Warp is a named teleport destination owned by an island. Warp names are unique
// case-insensitively within their island.
type Warp struct {
	ID          string     `bson:"_id" json:"ID"`
	IslandID    string     `bson:"island_id" json:"IslandID"`
	Name        string     `bson:"name" json:"Name"`
	Description string     `bson:"description" json:"Description"`
	Target      Location   `bson:"target" json:"Target"`
	Public      bool       `bson:"public" json:"Public"`
	CreatedAt   *time.Time `bson:"created_at,omitempty" json:"CreatedAt"`
	Visits      int64      `bson:"visits" json:"Visits"`
}

// WarpQuota returns how many warps an island of the given level may host: a step
// function of level plus one bonus slot for the extra-warp permission. The quota
// is enforced at creation time only, never retroactively when a level drops.
func WarpQuota(level int64, extraSlot bool) int {
	var quota int
	switch {
	case level >= 1000:
		quota = 3
	case level >= 100:
		quota = 2
	case level >= 10:
		quota = 1
	}
	if extraSlot {
		quota++
	}
	return quota
}
