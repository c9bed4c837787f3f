// shared/models/island.go
package models

import "time"

// Default values and capacity floors for islands. Capacity setters clamp to the
// floors instead of rejecting under-range requests.
const (
	DefaultIslandSize      = 50
	DefaultIslandLevel     = 1
	DefaultMaxDepositBoxes = 5
	DefaultMaxPrinters     = 5
	DefaultMaxHoppers      = 8

	MinMaxDepositBoxes = 2
	MinMaxPrinters     = 1
	MinMaxHoppers      = 5
	MinSpeedMultiplier = 1.0
)

// Island is the persisted record for a player-owned island: membership, flags,
// bank balance, capacity limits and the nested device/warp collections. It is
// saved and loaded as a whole document; the live, lock-guarded aggregate built
// on top of it lives in the island service.
type Island struct {
	UUID            string              `bson:"_id" json:"UUID"`
	OwnerUUID       string              `bson:"owner_uuid" json:"OwnerUUID"`
	Name            string              `bson:"name" json:"Name"`
	Size            int                 `bson:"size" json:"Size"`
	Level           int64               `bson:"level" json:"Level"`
	Bank            float64             `bson:"bank" json:"Bank"`
	Members         []string            `bson:"members" json:"Members"`
	Visitors        []string            `bson:"visitors" json:"Visitors"`
	Flags           map[IslandFlag]bool `bson:"flags" json:"Flags"`
	CreatedAt       *time.Time          `bson:"created_at,omitempty" json:"CreatedAt"`
	LastActivityAt  *time.Time          `bson:"last_activity_at,omitempty" json:"LastActivityAt"`
	MaxDepositBoxes int                 `bson:"max_deposit_boxes" json:"MaxDepositBoxes"`
	MaxPrinters     int                 `bson:"max_printers" json:"MaxPrinters"`
	MaxHoppers      int                 `bson:"max_hoppers" json:"MaxHoppers"`
	TransferSpeed   float64             `bson:"transfer_speed" json:"TransferSpeed"`
	GenerationSpeed float64             `bson:"generation_speed" json:"GenerationSpeed"`
	DepositBoxes    map[string]*Device  `bson:"deposit_boxes" json:"DepositBoxes"`
	Printers        map[string]*Device  `bson:"printers" json:"Printers"`
	Warps           map[string]*Warp    `bson:"warps" json:"Warps"`
	WarpsOpen       bool                `bson:"warps_open" json:"WarpsOpen"`
	PromotedUntil   *time.Time          `bson:"promoted_until,omitempty" json:"PromotedUntil"`
}

// NewIsland builds a fully-defaulted island record for a fresh creation.
func NewIsland(id, ownerUUID, name string) *Island {
	now := time.Now()
	return &Island{
		UUID:            id,
		OwnerUUID:       ownerUUID,
		Name:            name,
		Size:            DefaultIslandSize,
		Level:           DefaultIslandLevel,
		Bank:            0.0,
		Members:         []string{},
		Visitors:        []string{},
		Flags:           DefaultFlags(),
		CreatedAt:       &now,
		LastActivityAt:  &now,
		MaxDepositBoxes: DefaultMaxDepositBoxes,
		MaxPrinters:     DefaultMaxPrinters,
		MaxHoppers:      DefaultMaxHoppers,
		TransferSpeed:   MinSpeedMultiplier,
		GenerationSpeed: MinSpeedMultiplier,
		DepositBoxes:    map[string]*Device{},
		Printers:        map[string]*Device{},
		Warps:           map[string]*Warp{},
	}
}

// Normalize repairs an island record deserialized from older data: nil
// collections become empty ones, the flag map is completed with defaults for
// any missing keys, capacity fields are raised to their floors and device tiers
// are clamped. Loads always return a fully-defaulted object.
func (i *Island) Normalize() {
	if i.Members == nil {
		i.Members = []string{}
	}
	if i.Visitors == nil {
		i.Visitors = []string{}
	}
	if i.Flags == nil {
		i.Flags = map[IslandFlag]bool{}
	}
	for flag, def := range DefaultFlags() {
		if _, ok := i.Flags[flag]; !ok {
			i.Flags[flag] = def
		}
	}
	if i.DepositBoxes == nil {
		i.DepositBoxes = map[string]*Device{}
	}
	if i.Printers == nil {
		i.Printers = map[string]*Device{}
	}
	if i.Warps == nil {
		i.Warps = map[string]*Warp{}
	}
	if i.MaxDepositBoxes < MinMaxDepositBoxes {
		i.MaxDepositBoxes = MinMaxDepositBoxes
	}
	if i.MaxPrinters < MinMaxPrinters {
		i.MaxPrinters = MinMaxPrinters
	}
	if i.MaxHoppers < MinMaxHoppers {
		i.MaxHoppers = MinMaxHoppers
	}
	if i.TransferSpeed < MinSpeedMultiplier {
		i.TransferSpeed = MinSpeedMultiplier
	}
	if i.GenerationSpeed < MinSpeedMultiplier {
		i.GenerationSpeed = MinSpeedMultiplier
	}
	for _, d := range i.DepositBoxes {
		d.ClampTier()
	}
	for _, d := range i.Printers {
		d.ClampTier()
	}
	if i.Size <= 0 {
		i.Size = DefaultIslandSize
	}
	if i.Level < DefaultIslandLevel {
		i.Level = DefaultIslandLevel
	}
}

// Clone returns a deep copy of the island record. Used to take persistence
// snapshots without holding the live aggregate's lock during I/O.
func (i *Island) Clone() *Island {
	cp := *i
	cp.Members = append([]string{}, i.Members...)
	cp.Visitors = append([]string{}, i.Visitors...)
	cp.Flags = make(map[IslandFlag]bool, len(i.Flags))
	for k, v := range i.Flags {
		cp.Flags[k] = v
	}
	cp.DepositBoxes = make(map[string]*Device, len(i.DepositBoxes))
	for k, v := range i.DepositBoxes {
		d := *v
		cp.DepositBoxes[k] = &d
	}
	cp.Printers = make(map[string]*Device, len(i.Printers))
	for k, v := range i.Printers {
		d := *v
		cp.Printers[k] = &d
	}
	cp.Warps = make(map[string]*Warp, len(i.Warps))
	for k, v := range i.Warps {
		w := *v
		cp.Warps[k] = &w
	}
	if i.CreatedAt != nil {
		t := *i.CreatedAt
		cp.CreatedAt = &t
	}
	if i.LastActivityAt != nil {
		t := *i.LastActivityAt
		cp.LastActivityAt = &t
	}
	if i.PromotedUntil != nil {
		t := *i.PromotedUntil
		cp.PromotedUntil = &t
	}
	return &cp
}
