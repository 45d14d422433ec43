package mocap

import (
	gomath "math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/roboticeyes/worldtobase/event"
	"github.com/roboticeyes/worldtobase/math"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-6

var s = gomath.Sqrt2 / 2

func body(id int64, pos Point, q math.Quaternion) RigidBody {
	return RigidBody{
		ID: id,
		PoseStamped: PoseStamped{
			Header: Header{Stamp: Stamp{Sec: int32(100 + id), Nanosec: uint32(500 * id)}, FrameID: "world"},
			Pose:   Pose{Position: pos, Orientation: q},
		},
	}
}

func batchOf(bodies ...RigidBody) RigidBodyArray {
	return RigidBodyArray{RigidBodies: bodies}
}

func identityCalibration() Calibration {
	return Calibration{BaseID: 0, Rotation: math.IdentityQuaternion()}
}

var approx = cmpopts.EquateApprox(0, tol)

func assertPose(t *testing.T, want Pose, got Pose) {
	t.Helper()
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("pose mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultCalibration(t *testing.T) {
	cal := DefaultCalibration()
	assert.Equal(t, int64(0), cal.BaseID)
	assert.Equal(t, math.Quaternion{X: -0.7071068, Y: 0, Z: 0, W: 0.7071068}, cal.Rotation)
	assert.Equal(t, r3.Vector{X: 0, Y: -0.19, Z: 0}, cal.Offset)
}

func TestWorldToBaseIgnoresObservedOrientation(t *testing.T) {
	cal := Calibration{Rotation: math.Quaternion{X: -s, W: s}, Offset: r3.Vector{Y: -0.19}}
	batch := batchOf(body(0, Point{X: 1, Y: 1, Z: 1}, math.Quaternion{Z: s, W: s}))

	res := Transformer{}.Transform(batch, cal)

	require.True(t, res.Base.Found())
	assert.Equal(t, math.Quaternion{Z: s, W: s}, res.Base.Orientation)
	assert.True(t, res.WorldToBase.Rotation().AlmostEqual(math.QuaternionToRotation(cal.Rotation), tol))
	assert.InDelta(t, 1, res.WorldToBase.Translation().X, tol)
	assert.InDelta(t, 0.81, res.WorldToBase.Translation().Y, tol)
	assert.InDelta(t, 1, res.WorldToBase.Translation().Z, tol)
}

func TestIdentityTransform(t *testing.T) {
	batch := batchOf(
		body(0, Point{}, math.IdentityQuaternion()),
		body(1, Point{X: 1, Y: 2, Z: 3}, math.IdentityQuaternion()),
		body(2, Point{X: -4, Y: 0.5, Z: 7}, math.Quaternion{Z: s, W: s}),
	)

	res := Transformer{}.Transform(batch, identityCalibration())
	require.Nil(t, res.Missing)
	require.Len(t, res.Batch.RigidBodies, 3)

	for i, in := range batch.RigidBodies {
		out := res.Batch.RigidBodies[i]
		if diff := cmp.Diff(in.PoseStamped.Pose.Position, out.PoseStamped.Pose.Position, approx); diff != "" {
			t.Errorf("body %d moved (-want +got):\n%s", in.ID, diff)
		}
		assert.Equal(t, in.PoseStamped.Header, out.PoseStamped.Header)
	}
	assertPose(t, batch.RigidBodies[1].PoseStamped.Pose, res.Batch.RigidBodies[1].PoseStamped.Pose)

	// with identity calibration the orientation inversion leaves the inverse rotation
	got := res.Batch.RigidBodies[2].PoseStamped.Pose.Orientation
	assert.True(t, got.AlmostEqual(math.Quaternion{Z: -s, W: s}, tol), "got %v", got)
}

func TestBaseSelfConsistency(t *testing.T) {
	cal := Calibration{BaseID: 0, Rotation: math.IdentityQuaternion(), Offset: r3.Vector{X: 1}}
	batch := batchOf(body(0, Point{X: 5}, math.IdentityQuaternion()))

	res := Transformer{}.Transform(batch, cal)

	require.Nil(t, res.Missing)
	assert.Equal(t, 0, res.Base.Index)
	assert.Equal(t, r3.Vector{X: 6}, res.WorldToBase.Translation())
	// the marker sits at -offset from the base
	assertPose(t, Pose{Position: Point{X: -1}, Orientation: math.IdentityQuaternion()}, res.Batch.RigidBodies[0].PoseStamped.Pose)

	cal.Offset = r3.Vector{}
	res = Transformer{}.Transform(batch, cal)
	assertPose(t, Pose{Position: Point{}, Orientation: math.IdentityQuaternion()}, res.Batch.RigidBodies[0].PoseStamped.Pose)
}

func TestBaseSelfConsistencyRotated(t *testing.T) {
	cal := Calibration{BaseID: 4, Rotation: math.Quaternion{X: -s, W: s}, Offset: r3.Vector{Y: -0.19}}
	batch := batchOf(body(4, Point{X: 2, Y: 3, Z: 1}, math.IdentityQuaternion()))

	res := Transformer{}.Transform(batch, cal)

	// -Rᵗ·offset with R a -90 degree turn about x
	want := math.QuaternionToRotation(cal.Rotation).Transpose().MulVec(cal.Offset).Mul(-1)
	assertPose(t, Pose{Position: PointFromVector(want), Orientation: math.IdentityQuaternion()}, res.Batch.RigidBodies[0].PoseStamped.Pose)
	assert.InDelta(t, 0.19, want.Z, tol)
}

func TestMissingBase(t *testing.T) {
	hook := logtest.NewLocal(event.Log)
	defer hook.Reset()

	cal := Calibration{BaseID: 0, Rotation: math.Quaternion{X: -s, W: s}, Offset: r3.Vector{Y: -0.19}}
	batch := batchOf(body(7, Point{X: 1, Y: 2, Z: 3}, math.IdentityQuaternion()))

	res := Transformer{}.Transform(batch, cal)

	require.NotNil(t, res.Missing)
	assert.Equal(t, &MissingBaseError{BaseID: 0, Bodies: 1}, res.Missing)
	assert.False(t, res.Base.Found())
	assert.Equal(t, r3.Vector{Y: -0.19}, res.WorldToBase.Translation())

	require.Len(t, res.Batch.RigidBodies, 1)
	out := res.Batch.RigidBodies[0]
	assert.Equal(t, int64(7), out.ID)
	assertPose(t, Pose{Position: Point{X: 1, Y: -3, Z: 2.19}, Orientation: math.IdentityQuaternion()}, out.PoseStamped.Pose)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "Rigid body of the base not found", entry.Message)
}

func TestEmptyBatch(t *testing.T) {
	hook := logtest.NewLocal(event.Log)
	defer hook.Reset()

	res := Transformer{}.Transform(RigidBodyArray{}, DefaultCalibration())

	assert.Nil(t, res.Missing)
	assert.NotNil(t, res.Batch.RigidBodies)
	assert.Empty(t, res.Batch.RigidBodies)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, e.Level, "unexpected error log %q", e.Message)
	}
}

func TestOrderPreservation(t *testing.T) {
	tests := []struct {
		name string
		ids  []int64
		base int
	}{
		{"empty", nil, -1},
		{"single base", []int64{3}, 0},
		{"single other", []int64{9}, -1},
		{"duplicates", []int64{1, 3, 2, 3, 1, 2}, 1},
		{"duplicates without base", []int64{5, 5, 6}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var batch RigidBodyArray
			for i, id := range tt.ids {
				batch.RigidBodies = append(batch.RigidBodies, body(id, Point{X: float64(i)}, math.IdentityQuaternion()))
			}
			cal := DefaultCalibration()
			cal.BaseID = 3

			res := Transformer{}.Transform(batch, cal)

			require.Len(t, res.Batch.RigidBodies, len(tt.ids))
			for i, id := range tt.ids {
				assert.Equal(t, id, res.Batch.RigidBodies[i].ID)
				assert.Equal(t, batch.RigidBodies[i].PoseStamped.Header, res.Batch.RigidBodies[i].PoseStamped.Header)
			}
			assert.Equal(t, tt.base, res.Base.Index)
		})
	}
}

func TestFirstBaseWins(t *testing.T) {
	batch := batchOf(
		body(2, Point{X: 9}, math.IdentityQuaternion()),
		body(0, Point{X: 1}, math.IdentityQuaternion()),
		body(0, Point{X: 100}, math.IdentityQuaternion()),
	)
	base, err := FindBase(batch, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, base.Index)
	assert.Equal(t, r3.Vector{X: 1}, base.Position)

	res := Transformer{}.Transform(batch, identityCalibration())
	assert.InDelta(t, 0, res.Batch.RigidBodies[1].PoseStamped.Pose.Position.X, tol)
	assert.InDelta(t, 99, res.Batch.RigidBodies[2].PoseStamped.Pose.Position.X, tol)
}

func TestFindBaseMissing(t *testing.T) {
	base, err := FindBase(batchOf(body(1, Point{}, math.IdentityQuaternion())), 2)
	var missing *MissingBaseError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, int64(2), missing.BaseID)
	assert.Equal(t, -1, base.Index)
	assert.Equal(t, r3.Vector{}, base.Position)
	assert.Contains(t, err.Error(), "id 2")
}

func TestOrientationInversion(t *testing.T) {
	cal := Calibration{BaseID: 0, Rotation: math.Quaternion{X: -s, W: s}}
	q := math.Quaternion{Z: s, W: s} // 90 degrees about z
	batch := batchOf(
		body(0, Point{}, math.IdentityQuaternion()),
		body(1, Point{}, q),
	)

	res := Transformer{}.Transform(batch, cal)
	got := res.Batch.RigidBodies[1].PoseStamped.Pose.Orientation

	// R_bw · R(q)ᵗ · R_bwᵗ is a quarter turn about y
	assert.True(t, got.AlmostEqual(math.Quaternion{Y: s, W: s}, tol), "got %v", got)

	rbw := res.WorldToBase.InvertRigid().Rotation()
	want := math.RotationToQuaternion(rbw.Mul(math.QuaternionToRotation(q).Transpose()).Mul(rbw.Transpose()))
	assert.True(t, got.AlmostEqual(want, tol), "got %v, want %v", got, want)

	naive := math.RotationToQuaternion(rbw.Mul(math.QuaternionToRotation(q)).Mul(rbw.Transpose()))
	assert.False(t, got.SameRotation(naive, 1e-3), "orientation must not match the composition without inversion")
}

func TestOrientationMatchesComposedTransform(t *testing.T) {
	// with an identity calibration the conjugated rotation and the rotation
	// block of the composed transform coincide
	baseWorld := WorldToBase(identityCalibration(), r3.Vector{X: 2}).InvertRigid()
	rb := body(1, Point{X: 1}, math.Quaternion{X: 0.5, Y: 0.5, Z: 0.5, W: 0.5})

	out := TransformObservation(baseWorld, rb)
	composed := math.RotationToQuaternion(bodyInBase(baseWorld, rb).Rotation())

	assert.True(t, out.PoseStamped.Pose.Orientation.SameRotation(composed, tol))
	assert.InDelta(t, -1, out.PoseStamped.Pose.Position.X, tol)
}

func TestNonUnitOrientationIsNotRejected(t *testing.T) {
	hook := logtest.NewLocal(event.Log)
	defer hook.Reset()

	rb := body(1, Point{X: 1}, math.Quaternion{W: 2})
	res := Transformer{}.Transform(batchOf(rb), identityCalibration())

	require.Len(t, res.Batch.RigidBodies, 1)
	want := TransformObservation(WorldToBase(identityCalibration(), r3.Vector{}).InvertRigid(), rb)
	assert.Equal(t, want, res.Batch.RigidBodies[0])

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Orientation is not of unit norm" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestWorldToBodyTransposesRotation(t *testing.T) {
	for _, q := range []math.Quaternion{
		{X: 0.1, Y: -0.4, Z: 0.3, W: 0.8},
		{X: 1, Y: 2, Z: -3, W: 0.5},
	} {
		rb := body(2, Point{X: 1, Y: 2, Z: 3}, q)
		got := worldToBody(rb)
		assert.Equal(t, math.QuaternionToRotation(q).Transpose(), got.Rotation())
		assert.Equal(t, r3.Vector{X: 1, Y: 2, Z: 3}, got.Translation())
	}
}
