package mocap

import (
	"github.com/golang/geo/r3"
	"github.com/roboticeyes/worldtobase/math"
)

// Calibration places the robot base relative to the marker on its holder.
// Rotation is the orientation of the base in the world frame, Offset the
// translation from the observed marker to the base. BaseID selects which
// rigid body is the base marker.
type Calibration struct {
	BaseID   int64
	Rotation math.Quaternion
	Offset   r3.Vector
}

// DefaultCalibration returns the calibration of the standard base holder
func DefaultCalibration() Calibration {
	return Calibration{
		BaseID:   0,
		Rotation: math.Quaternion{X: -0.7071068, Y: 0, Z: 0, W: 0.7071068},
		Offset:   r3.Vector{X: 0, Y: -0.19, Z: 0},
	}
}

// WorldToBase returns the pose of the robot base in the world frame.
//
// The rotation comes from the calibration only. The translation is the
// calibration offset plus the observed position of the base marker; pass the
// zero vector when the marker was not observed.
func WorldToBase(cal Calibration, observedBase r3.Vector) math.Homogeneous {
	return math.Transformation{
		Translation: cal.Offset.Add(observedBase),
		Rotation:    cal.Rotation,
	}.Matrix()
}
