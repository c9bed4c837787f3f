// shared/models/flags.go
package models

// IslandFlag identifies a per-island behavior toggle. The set of flags is closed:
// every island carries a value for every flag at all times, so readers never have
// to defend against a missing key.
type IslandFlag string

const (
	FlagPVP                IslandFlag = "PVP"
	FlagMobSpawning        IslandFlag = "MOB_SPAWNING"
	FlagAnimalSpawning     IslandFlag = "ANIMAL_SPAWNING"
	FlagVisitorChestAccess IslandFlag = "VISITOR_CHEST_ACCESS"
	FlagFireSpread         IslandFlag = "FIRE_SPREAD"
	FlagLeafDecay          IslandFlag = "LEAF_DECAY"
)

// AllFlags lists every defined island flag.
var AllFlags = []IslandFlag{
	FlagPVP,
	FlagMobSpawning,
	FlagAnimalSpawning,
	FlagVisitorChestAccess,
	FlagFireSpread,
	FlagLeafDecay,
}

// DefaultFlags returns a fully populated flag map with the defaults every new
// island starts with.
func DefaultFlags() map[IslandFlag]bool {
	return map[IslandFlag]bool{
		FlagPVP:                false,
		FlagMobSpawning:        true,
		FlagAnimalSpawning:     true,
		FlagVisitorChestAccess: false,
		FlagFireSpread:         false,
		FlagLeafDecay:          true,
	}
}

// IsValidFlag reports whether the given string names a defined island flag.
func IsValidFlag(flag IslandFlag) bool {
	for _, f := range AllFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// PermissionKind identifies a privileged capability checked against the external
// permission authority. The authority's policy logic lives entirely outside this
// codebase; these are the only kinds the services ever ask about.
type PermissionKind string

const (
	PermissionCreateIsland PermissionKind = "skyblock.island.create"
	PermissionExtraWarp    PermissionKind = "skyblock.warp.extra"
)
