package engine

import (
	"sort"
	"strings"
)

// ChanType is the physical quantity a channel measures or drives.
type ChanType int

// Channel types, in the order of the kernel's iio_chan_type.
const (
	ChanVoltage ChanType = iota
	ChanCurrent
	ChanPower
	ChanAccel
	ChanAnglVel
	ChanMagn
	ChanLight
	ChanIntensity
	ChanProximity
	ChanTemp
	ChanIncli
	ChanRot
	ChanAngl
	ChanTimestamp
	ChanCapacitance
	ChanAltVoltage
	ChanCCT
	ChanPressure
	ChanHumidityRelative
	ChanActivity
	ChanSteps
	ChanEnergy
	ChanDistance
	ChanVelocity
	ChanConcentration
	ChanResistance
	ChanPH
	ChanUVIndex
	ChanElectricalConductivity
	ChanCount
	ChanIndex
	ChanGravity
	ChanPositionRelative
	ChanPhase
	ChanMassConcentration
	ChanUnknown
)

var chanTypeNames = map[ChanType]string{
	ChanVoltage:                "voltage",
	ChanCurrent:                "current",
	ChanPower:                  "power",
	ChanAccel:                  "accel",
	ChanAnglVel:                "anglvel",
	ChanMagn:                   "magn",
	ChanLight:                  "illuminance",
	ChanIntensity:              "intensity",
	ChanProximity:              "proximity",
	ChanTemp:                   "temp",
	ChanIncli:                  "incli",
	ChanRot:                    "rot",
	ChanAngl:                   "angl",
	ChanTimestamp:              "timestamp",
	ChanCapacitance:            "capacitance",
	ChanAltVoltage:             "altvoltage",
	ChanCCT:                    "cct",
	ChanPressure:               "pressure",
	ChanHumidityRelative:       "humidityrelative",
	ChanActivity:               "activity",
	ChanSteps:                  "steps",
	ChanEnergy:                 "energy",
	ChanDistance:               "distance",
	ChanVelocity:               "velocity",
	ChanConcentration:          "concentration",
	ChanResistance:             "resistance",
	ChanPH:                     "ph",
	ChanUVIndex:                "uvindex",
	ChanElectricalConductivity: "electricalconductivity",
	ChanCount:                  "count",
	ChanIndex:                  "index",
	ChanGravity:                "gravity",
	ChanPositionRelative:       "positionrelative",
	ChanPhase:                  "phase",
	ChanMassConcentration:      "massconcentration",
	ChanUnknown:                "unknown",
}

// chanTypePrefixes is sorted longest first so "altvoltage" wins over
// "voltage" and "phase" over "ph".
var chanTypePrefixes = func() []ChanType {
	types := make([]ChanType, 0, len(chanTypeNames))
	for t := range chanTypeNames {
		if t != ChanUnknown {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool {
		a, b := chanTypeNames[types[i]], chanTypeNames[types[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return types
}()

func (t ChanType) String() string {
	if name, ok := chanTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseChanType derives the channel type from a channel ID such as
// "voltage0" or "accel_x".
func ParseChanType(id string) ChanType {
	for _, t := range chanTypePrefixes {
		if strings.HasPrefix(id, chanTypeNames[t]) {
			return t
		}
	}
	return ChanUnknown
}
