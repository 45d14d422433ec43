// Package params holds the runtime parameters of the world to base node.
package params

import (
	"github.com/golang/geo/r3"
	"github.com/roboticeyes/worldtobase/math"
	"github.com/roboticeyes/worldtobase/mocap"
)

// Parameter names, as found in a parameters file
const (
	KeyBaseID         = "base_id"
	KeyBaseQx         = "base_qx"
	KeyBaseQy         = "base_qy"
	KeyBaseQz         = "base_qz"
	KeyBaseQw         = "base_qw"
	KeyInitialOffsetX = "initial_offset_x"
	KeyInitialOffsetY = "initial_offset_y"
	KeyInitialOffsetZ = "initial_offset_z"
	KeySubTopic       = "sub_topic"
	KeyPubTopic       = "pub_topic"
)

// Default topic names
const (
	DefaultSubTopic = "rigid_body_topic"
	DefaultPubTopic = "rigid_body_baseframe_topic"
)

// Parameters is a snapshot of all parameters of the node
type Parameters struct {
	BaseID         int64   `json:"base_id"`
	BaseQx         float64 `json:"base_qx"`
	BaseQy         float64 `json:"base_qy"`
	BaseQz         float64 `json:"base_qz"`
	BaseQw         float64 `json:"base_qw"`
	InitialOffsetX float64 `json:"initial_offset_x"`
	InitialOffsetY float64 `json:"initial_offset_y"`
	InitialOffsetZ float64 `json:"initial_offset_z"`
	SubTopic       string  `json:"sub_topic"`
	PubTopic       string  `json:"pub_topic"`
}

// Defaults returns the parameters used when nothing else is configured
func Defaults() Parameters {
	cal := mocap.DefaultCalibration()
	return Parameters{
		BaseID:         cal.BaseID,
		BaseQx:         cal.Rotation.X,
		BaseQy:         cal.Rotation.Y,
		BaseQz:         cal.Rotation.Z,
		BaseQw:         cal.Rotation.W,
		InitialOffsetX: cal.Offset.X,
		InitialOffsetY: cal.Offset.Y,
		InitialOffsetZ: cal.Offset.Z,
		SubTopic:       DefaultSubTopic,
		PubTopic:       DefaultPubTopic,
	}
}

// Calibration extracts the base calibration from the parameters
func (p Parameters) Calibration() mocap.Calibration {
	return mocap.Calibration{
		BaseID:   p.BaseID,
		Rotation: math.Quaternion{X: p.BaseQx, Y: p.BaseQy, Z: p.BaseQz, W: p.BaseQw},
		Offset:   r3.Vector{X: p.InitialOffsetX, Y: p.InitialOffsetY, Z: p.InitialOffsetZ},
	}
}

// Store gives read access to the current parameters. Callers take a new
// snapshot for every batch, so changes apply from the next batch on.
type Store interface {
	Snapshot() Parameters
}

// Static is a Store whose parameters never change
type Static Parameters

// Snapshot returns the fixed parameters
func (s Static) Snapshot() Parameters {
	return Parameters(s)
}
