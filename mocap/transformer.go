package mocap

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/roboticeyes/worldtobase/event"
	"github.com/roboticeyes/worldtobase/math"
	"github.com/sirupsen/logrus"
)

var log = event.Log

// MissingBaseError reports that the configured base marker is not part of a
// batch. It is a diagnostic: the batch is still transformed with the
// calibration alone.
type MissingBaseError struct {
	BaseID int64
	Bodies int
}

func (e *MissingBaseError) Error() string {
	return fmt.Sprintf("rigid body of the base (id %d) not found among %d bodies", e.BaseID, e.Bodies)
}

// BaseLookup is the outcome of searching the base marker in a batch.
type BaseLookup struct {
	// Index of the base marker in the batch, -1 if missing
	Index int
	// Position of the base marker in the world frame, zero if missing
	Position r3.Vector
	// Orientation of the base marker. It is not used for the world to base
	// transform, whose rotation is taken from the calibration.
	Orientation math.Quaternion
}

// Found reports whether the base marker was part of the batch
func (b BaseLookup) Found() bool {
	return b.Index >= 0
}

// FindBase returns the first body of batch whose ID is baseID. If there is
// none, the lookup has Index -1 and a zero position, and a *MissingBaseError
// is returned with it.
func FindBase(batch RigidBodyArray, baseID int64) (BaseLookup, error) {
	for i, rb := range batch.RigidBodies {
		if rb.ID == baseID {
			return BaseLookup{
				Index:       i,
				Position:    rb.PoseStamped.Pose.Position.Vector(),
				Orientation: rb.PoseStamped.Pose.Orientation,
			}, nil
		}
	}
	return BaseLookup{Index: -1}, &MissingBaseError{BaseID: baseID, Bodies: batch.Len()}
}

// Result is the outcome of transforming one batch.
type Result struct {
	// Batch holds one transformed body per input body, in input order
	Batch RigidBodyArray
	// WorldToBase is the pose of the robot base in the world frame used for the batch
	WorldToBase math.Homogeneous
	Base        BaseLookup
	// Missing is set when the base marker was not found in a non-empty batch
	Missing *MissingBaseError
}

// Transformer expresses batches of rigid bodies in the robot base frame. It
// keeps no state between batches; the zero value is ready to use.
type Transformer struct {
	// UnitTolerance bounds the accepted deviation of input quaternions from
	// unit norm before a warning is logged. Defaults to math.UnitTolerance.
	UnitTolerance float64
}

// Transform expresses every body of batch, including the base marker itself,
// in the frame of the robot base described by cal.
//
// A missing base marker does not stop the batch: the observed base position is
// taken as zero, the condition is logged and returned in Result.Missing. An
// empty batch gives an empty result without any report.
func (t Transformer) Transform(batch RigidBodyArray, cal Calibration) Result {
	log.WithFields(event.Fields{
		"base_id": cal.BaseID,
		"bodies":  batch.Len(),
	}).Debug("Transforming rigid bodies")

	var res Result
	base, err := FindBase(batch, cal.BaseID)
	res.Base = base
	var missing *MissingBaseError
	if errors.As(err, &missing) && batch.Len() > 0 {
		res.Missing = missing
		log.WithFields(event.Fields{
			"base_id": cal.BaseID,
			"bodies":  batch.Len(),
		}).Error("Rigid body of the base not found")
	}

	tol := t.tolerance()
	if !cal.Rotation.IsUnit(tol) {
		log.WithFields(event.Fields{
			"norm": cal.Rotation.Norm(),
		}).Warn("Calibration quaternion is not of unit norm")
	}

	res.WorldToBase = WorldToBase(cal, base.Position)
	baseWorld := res.WorldToBase.InvertRigid()
	if log.IsLevelEnabled(logrus.DebugLevel) {
		log.Debug("Transformation matrix from world frame to robot base frame:\n" + res.WorldToBase.String())
		log.Debug("Transformation matrix from robot base frame to world frame:\n" + baseWorld.String())
	}

	res.Batch.RigidBodies = make([]RigidBody, 0, batch.Len())
	for _, rb := range batch.RigidBodies {
		fields := event.Fields{
			"id":      rb.ID,
			"sec":     rb.PoseStamped.Header.Stamp.Sec,
			"nanosec": rb.PoseStamped.Header.Stamp.Nanosec,
		}
		if q := rb.PoseStamped.Pose.Orientation; !q.IsUnit(tol) {
			log.WithFields(fields).WithField("norm", q.Norm()).Warn("Orientation is not of unit norm")
		}

		out := TransformObservation(baseWorld, rb)
		if log.IsLevelEnabled(logrus.DebugLevel) {
			log.WithFields(fields).Debug("Rigid body in robot base frame:\n" + bodyInBase(baseWorld, rb).String())
		}
		res.Batch.RigidBodies = append(res.Batch.RigidBodies, out)
	}
	return res
}

func (t Transformer) tolerance() float64 {
	if t.UnitTolerance > 0 {
		return t.UnitTolerance
	}
	return math.UnitTolerance
}

// worldToBody builds the pose of rb in the world frame. The capture system
// reports the rotation from the body frame back to its initial frame, so the
// conjugate is taken to get the initial to body rotation. The closed form
// rotation of the conjugate is exactly the transpose, unit norm or not.
func worldToBody(rb RigidBody) math.Homogeneous {
	pose := rb.PoseStamped.Pose
	return math.Transformation{
		Translation: pose.Position.Vector(),
		Rotation:    pose.Orientation.Conj(),
	}.Matrix()
}

func bodyInBase(baseWorld math.Homogeneous, rb RigidBody) math.Homogeneous {
	return baseWorld.Mul(worldToBody(rb))
}

// TransformObservation expresses rb in the base frame, given the transform
// from the base frame to the world frame. The position is the translation of
// baseWorld·worldBody; the orientation is the rotation of the body conjugated
// by the base rotation, R·Rb·Rᵗ. ID and stamp are copied unchanged.
func TransformObservation(baseWorld math.Homogeneous, rb RigidBody) RigidBody {
	worldBody := worldToBody(rb)

	rot := baseWorld.Rotation()
	orientation := math.RotationToQuaternion(rot.Mul(worldBody.Rotation()).Mul(rot.Transpose()))

	out := rb
	out.PoseStamped.Pose = Pose{
		Position:    PointFromVector(baseWorld.Apply(worldBody.Translation())),
		Orientation: orientation,
	}
	return out
}
