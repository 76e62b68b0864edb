package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// vehicleIDSpace bounds the numeric part of a vehicle_id to six digits.
const vehicleIDSpace = 1000000

// ComputeVehicleID computes a deterministic vehicle_id from a plate.
// Formula: "VH_" + zero-padded (first 8 bytes of SHA256(plate) as uint64) mod 1e6.
// The plate is used verbatim: "KAA 123A" and "kaa 123a" are different vehicles.
func ComputeVehicleID(plate string) string {
	hash := sha256.Sum256([]byte(plate))
	n := binary.BigEndian.Uint64(hash[:8]) % vehicleIDSpace
	return fmt.Sprintf("VH_%06d", n)
}
