// shared/models/device.go
package models

import "time"

// DeviceKind distinguishes the two generation device variants. Printers and
// deposit boxes share one tagged Device record: they place, tier and schedule
// identically and differ only in what a processing run produces. Physical
// placement is the world plugin's concern, not ours.
type DeviceKind string

const (
	DeviceKindPrinter    DeviceKind = "PRINTER"
	DeviceKindDepositBox DeviceKind = "DEPOSIT_BOX"
)

const (
	// MaxDeviceTier caps how far a device can be upgraded.
	MaxDeviceTier = 5

	// DepositBoxPerTierRate is how many items a deposit box produces per tier
	// each processing interval.
	DepositBoxPerTierRate = 2
	// DepositBoxMaxItemsPerSecond hard-caps deposit box production regardless
	// of tier.
	DepositBoxMaxItemsPerSecond = 10
	// depositBoxIntervalMs is the base processing interval for deposit boxes;
	// their yield is expressed as items per second.
	depositBoxIntervalMs = 1000
)

// printerPayouts maps tier to the value of a single printed bill. Deliberately
// non-linear: each tier roughly doubles-and-a-half the previous one.
var printerPayouts = [MaxDeviceTier + 1]float64{0, 50, 125, 300, 750, 2000}

// printerIntervalsMs maps tier to the base processing interval. Lower tiers
// print slower.
var printerIntervalsMs = [MaxDeviceTier + 1]int64{0, 60000, 45000, 30000, 20000, 12000}

// Device is a placed income-generating object on an island. The island owns its
// devices exclusively; only the generation scheduler advances LastProcessedMs and
// only upgrade operations change the tier.
type Device struct {
	ID              string     `bson:"_id" json:"ID"`
	Kind            DeviceKind `bson:"kind" json:"Kind"`
	OwnerUUID       string     `bson:"owner_uuid" json:"OwnerUUID"`
	X               int        `bson:"x" json:"X"`
	Y               int        `bson:"y" json:"Y"`
	Z               int        `bson:"z" json:"Z"`
	Tier            int        `bson:"tier" json:"Tier"`
	LastProcessedMs int64      `bson:"last_processed_ms" json:"LastProcessedMs"`
}

// ClampTier normalizes the tier into the valid [1, MaxDeviceTier] range. Called
// on construction and after deserialization of older records.
func (d *Device) ClampTier() {
	if d.Tier < 1 {
		d.Tier = 1
	}
	if d.Tier > MaxDeviceTier {
		d.Tier = MaxDeviceTier
	}
}

// ProcessingInterval returns the base interval between two processings of this
// device, derived purely from kind and tier.
func (d *Device) ProcessingInterval() time.Duration {
	tier := d.Tier
	if tier < 1 {
		tier = 1
	}
	if tier > MaxDeviceTier {
		tier = MaxDeviceTier
	}
	if d.Kind == DeviceKindDepositBox {
		return depositBoxIntervalMs * time.Millisecond
	}
	return time.Duration(printerIntervalsMs[tier]) * time.Millisecond
}

// Payout returns the money credited per processing for a printer. Zero for any
// other kind.
func (d *Device) Payout() float64 {
	if d.Kind != DeviceKindPrinter {
		return 0
	}
	tier := d.Tier
	if tier < 1 {
		tier = 1
	}
	if tier > MaxDeviceTier {
		tier = MaxDeviceTier
	}
	return printerPayouts[tier]
}

// ItemsPerInterval returns how many items a deposit box produces per processing:
// min(DepositBoxMaxItemsPerSecond, tier*DepositBoxPerTierRate). Zero for any
// other kind.
func (d *Device) ItemsPerInterval() int {
	if d.Kind != DeviceKindDepositBox {
		return 0
	}
	tier := d.Tier
	if tier < 1 {
		tier = 1
	}
	if tier > MaxDeviceTier {
		tier = MaxDeviceTier
	}
	items := tier * DepositBoxPerTierRate
	if items > DepositBoxMaxItemsPerSecond {
		items = DepositBoxMaxItemsPerSecond
	}
	return items
}

// DueForProcessing reports whether at least one full interval has elapsed since
// the device was last processed. speedMultiplier shortens the effective interval
// (the island's generation-speed upgrade); values below 1 are treated as 1.
func (d *Device) DueForProcessing(now time.Time, speedMultiplier float64) bool {
	if speedMultiplier < 1 {
		speedMultiplier = 1
	}
	interval := time.Duration(float64(d.ProcessingInterval()) / speedMultiplier)
	elapsed := now.UnixMilli() - d.LastProcessedMs
	return elapsed >= interval.Milliseconds()
}

// MarkProcessed stamps the device with the wall-clock processing time. The stamp
// is `now`, not lastProcessed+interval, so a stretch of scheduler downtime never
// causes a catch-up burst.
func (d *Device) MarkProcessed(now time.Time) {
	d.LastProcessedMs = now.UnixMilli()
}
