// Package spatial implements the small amount of rigid-body math the
// conversion pipeline needs: unit quaternions built from Euler angles or an
// axis-angle pair, and poses that rotate-then-translate points between named
// frames.
package spatial

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: rotation followed by translation.
type Pose struct {
	Translation r3.Vector
	Rotation    quat.Number
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// NewPose returns a pose from a translation and a rotation quaternion.
func NewPose(t r3.Vector, r quat.Number) Pose {
	return Pose{Translation: t, Rotation: r}
}

// NewPoseFromEuler returns a pose whose rotation is built from intrinsic
// roll, pitch, yaw angles in radians.
func NewPoseFromEuler(t r3.Vector, roll, pitch, yaw float64) Pose {
	return Pose{Translation: t, Rotation: QuatFromEuler(roll, pitch, yaw)}
}

// QuatFromEuler converts roll (x), pitch (y), yaw (z) angles in radians to a
// unit quaternion, ZYX rotation order.
func QuatFromEuler(roll, pitch, yaw float64) quat.Number {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// QuatFromAxisAngle converts a rotation of theta radians about the given axis
// to a unit quaternion. The axis need not be normalized; a zero axis yields
// the identity.
func QuatFromAxisAngle(axis r3.Vector, theta float64) quat.Number {
	n := axis.Norm()
	if n == 0 {
		return quat.Number{Real: 1}
	}
	u := axis.Mul(1 / n)
	s := math.Sin(theta / 2)
	return quat.Number{
		Real: math.Cos(theta / 2),
		Imag: s * u.X,
		Jmag: s * u.Y,
		Kmag: s * u.Z,
	}
}

// Normalize returns q scaled to unit length. The zero quaternion normalizes
// to the identity.
func Normalize(q quat.Number) quat.Number {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// RotatePoint rotates v by the unit quaternion q.
func RotatePoint(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// TransformPoint applies the pose to v: rotate, then translate. NaN
// coordinates propagate unchanged through both steps.
func (p Pose) TransformPoint(v r3.Vector) r3.Vector {
	return RotatePoint(p.Rotation, v).Add(p.Translation)
}

// QuatAlmostEqual reports whether two quaternions are equal within tol,
// treating q and -q as the same rotation.
func QuatAlmostEqual(a, b quat.Number, tol float64) bool {
	d := quat.Add(a, quat.Scale(-1, b))
	s := quat.Add(a, b)
	return quatNorm(d) < tol || quatNorm(s) < tol
}

func quatNorm(q quat.Number) float64 {
	return math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}
