// shared/models/player.go
package models

import (
	"time"
)

// SkyblockPlayer is a player's profile stored persistently in MongoDB. It holds
// only island ids, never island objects: player and island records are persisted
// and cached independently, and a referenced island may have been deleted since
// the reference was written. Profiles are never hard-deleted; the reset counter
// records how many islands the player has abandoned over time.
type SkyblockPlayer struct {
	UUID        string            `bson:"_id" json:"UUID"`
	Username    string            `bson:"username" json:"Username"`
	IslandUUID  string            `bson:"island_uuid" json:"IslandUUID"`
	Memberships []string          `bson:"memberships" json:"Memberships"`
	FirstSeenAt *time.Time        `bson:"first_seen_at,omitempty" json:"FirstSeenAt"`
	LastSeenAt  *time.Time        `bson:"last_seen_at,omitempty" json:"LastSeenAt"`
	ResetCount  int               `bson:"reset_count" json:"ResetCount"`
	SideData    map[string]string `bson:"side_data" json:"SideData"`
}

// NewSkyblockPlayer builds a fully-defaulted profile for a player seen for the
// first time.
func NewSkyblockPlayer(uuid string) *SkyblockPlayer {
	now := time.Now()
	return &SkyblockPlayer{
		UUID:        uuid,
		Username:    "", // filled asynchronously from Mojang
		IslandUUID:  "",
		Memberships: []string{},
		FirstSeenAt: &now,
		LastSeenAt:  &now,
		ResetCount:  0,
		SideData:    map[string]string{},
	}
}

// Normalize fills nil collections on a profile deserialized from older data.
func (p *SkyblockPlayer) Normalize() {
	if p.Memberships == nil {
		p.Memberships = []string{}
	}
	if p.SideData == nil {
		p.SideData = map[string]string{}
	}
}

// OwnsIsland reports whether the player currently owns an island.
func (p *SkyblockPlayer) OwnsIsland() bool {
	return p.IslandUUID != ""
}
