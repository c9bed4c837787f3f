package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNewIslandDefaults(t *testing.T) {
	isl := NewIsland("isl-1", "owner-1", "Home")

	assert.Equal(t, DefaultIslandSize, isl.Size)
	assert.Equal(t, int64(DefaultIslandLevel), isl.Level)
	assert.Equal(t, 0.0, isl.Bank)
	assert.Empty(t, isl.Members)
	assert.Empty(t, isl.Visitors)
	require.NotNil(t, isl.CreatedAt)

	// Every defined flag is present from the start, with its default value.
	require.Len(t, isl.Flags, len(AllFlags))
	assert.False(t, isl.Flags[FlagPVP])
	assert.True(t, isl.Flags[FlagMobSpawning])
	assert.True(t, isl.Flags[FlagAnimalSpawning])
	assert.False(t, isl.Flags[FlagVisitorChestAccess])
}

func TestNormalizeRepairsPartialRecord(t *testing.T) {
	isl := &Island{UUID: "isl-2", OwnerUUID: "owner-2"}
	isl.Normalize()

	require.NotNil(t, isl.Members)
	require.NotNil(t, isl.DepositBoxes)
	require.NotNil(t, isl.Warps)
	assert.Len(t, isl.Flags, len(AllFlags))
	assert.Equal(t, MinMaxDepositBoxes, isl.MaxDepositBoxes)
	assert.Equal(t, MinMaxPrinters, isl.MaxPrinters)
	assert.Equal(t, MinMaxHoppers, isl.MaxHoppers)
	assert.Equal(t, MinSpeedMultiplier, isl.TransferSpeed)
	assert.Equal(t, MinSpeedMultiplier, isl.GenerationSpeed)
}

func TestNormalizePreservesExplicitFlagValues(t *testing.T) {
	isl := &Island{
		UUID:  "isl-3",
		Flags: map[IslandFlag]bool{FlagPVP: true},
	}
	isl.Normalize()

	assert.True(t, isl.Flags[FlagPVP], "explicit values survive normalization")
	assert.True(t, isl.Flags[FlagMobSpawning], "missing keys get defaults")
}

func TestIslandBSONRoundTrip(t *testing.T) {
	isl := NewIsland("isl-4", "owner-4", "Roundtrip")
	isl.Members = []string{"m1", "m2"}
	isl.Visitors = []string{"v1"}
	isl.Bank = 1234.5
	isl.Printers["dev-1"] = &Device{ID: "dev-1", Kind: DeviceKindPrinter, OwnerUUID: "owner-4", X: 1, Y: 64, Z: -3, Tier: 2}
	isl.DepositBoxes["dev-2"] = &Device{ID: "dev-2", Kind: DeviceKindDepositBox, OwnerUUID: "m1", X: 2, Y: 64, Z: 0, Tier: 3}
	isl.Warps["warp-1"] = &Warp{ID: "warp-1", IslandID: "isl-4", Name: "spawn", Target: Location{World: "skyblock", X: 0.5, Y: 65, Z: 0.5}}

	raw, err := bson.Marshal(isl)
	require.NoError(t, err)

	var decoded Island
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	decoded.Normalize()

	assert.Equal(t, isl.UUID, decoded.UUID)
	assert.Equal(t, isl.Bank, decoded.Bank)
	assert.ElementsMatch(t, isl.Members, decoded.Members)
	assert.ElementsMatch(t, isl.Visitors, decoded.Visitors)
	assert.Equal(t, isl.Flags, decoded.Flags)
	require.Contains(t, decoded.Printers, "dev-1")
	assert.Equal(t, *isl.Printers["dev-1"], *decoded.Printers["dev-1"])
	require.Contains(t, decoded.DepositBoxes, "dev-2")
	assert.Equal(t, *isl.DepositBoxes["dev-2"], *decoded.DepositBoxes["dev-2"])
	require.Contains(t, decoded.Warps, "warp-1")
	assert.Equal(t, isl.Warps["warp-1"].Target, decoded.Warps["warp-1"].Target)
}

func TestCloneIsDeep(t *testing.T) {
	isl := NewIsland("isl-5", "owner-5", "Clone")
	isl.Printers["dev-1"] = &Device{ID: "dev-1", Kind: DeviceKindPrinter, Tier: 1}

	cp := isl.Clone()
	cp.Printers["dev-1"].Tier = 5
	cp.Members = append(cp.Members, "intruder")
	cp.Flags[FlagPVP] = true

	assert.Equal(t, 1, isl.Printers["dev-1"].Tier)
	assert.Empty(t, isl.Members)
	assert.False(t, isl.Flags[FlagPVP])
}

func TestWarpQuotaSteps(t *testing.T) {
	assert.Equal(t, 0, WarpQuota(5, false))
	assert.Equal(t, 1, WarpQuota(10, false))
	assert.Equal(t, 1, WarpQuota(99, false))
	assert.Equal(t, 2, WarpQuota(100, false))
	assert.Equal(t, 3, WarpQuota(1000, false))
	assert.Equal(t, 1, WarpQuota(5, true))
	assert.Equal(t, 4, WarpQuota(2500, true))
}
