// Package mocap re-expresses rigid bodies tracked by a motion capture system
// in the frame of a robot base.
package mocap

import (
	"github.com/golang/geo/r3"
	"github.com/roboticeyes/worldtobase/math"
)

// Stamp is the acquisition time of a rigid body. It is never interpreted,
// only copied from input to output.
type Stamp struct {
	Sec     int32  `json:"sec"`
	Nanosec uint32 `json:"nanosec"`
}

// Header carries the stamp and the frame a pose is expressed in
type Header struct {
	Stamp   Stamp  `json:"stamp"`
	FrameID string `json:"frame_id,omitempty"`
}

// Point is a position in meters
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector converts p for the math package.
func (p Point) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// PointFromVector is the inverse of Point.Vector.
func PointFromVector(v r3.Vector) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

// Pose is a position plus a unit quaternion orientation
type Pose struct {
	Position    Point           `json:"position"`
	Orientation math.Quaternion `json:"orientation"`
}

// PoseStamped is a pose together with its header
type PoseStamped struct {
	Header Header `json:"header"`
	Pose   Pose   `json:"pose"`
}

// RigidBody is one tracked marker cluster. The ID is assigned by the capture
// system.
type RigidBody struct {
	ID          int64       `json:"id"`
	PoseStamped PoseStamped `json:"pose_stamped"`
}

// RigidBodyArray is one batch of observations. The order of the bodies is
// kept from input to output.
type RigidBodyArray struct {
	RigidBodies []RigidBody `json:"rigid_bodies"`
}

// Len returns the number of bodies in the batch
func (a RigidBodyArray) Len() int {
	return len(a.RigidBodies)
}
