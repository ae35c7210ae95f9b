// Package rotation provides quaternion and SO(3) primitives used by the
// quadrotor plant and its controllers.
//
// Quaternions are scalar-first Hamilton quaternions ([quat.Number]) that
// rotate body-frame vectors into the world frame. Rotation matrices are
// row-major [Mat3] values with the same body->world convention.
//
//   - [Normalize]: unit quaternion with an identity fallback
//   - [ToRotationMatrix] / [FromRotationMatrix]: DCM conversions (Shepperd)
//   - [Derivative]: kinematic quaternion rate for a body angular rate
//   - [Hat] / [Vee]: skew operators
//   - [AttitudeError]: geodesic SO(3) error shared by both controllers
//
// [AttitudeError] is only unique for misalignments below 180 degrees.
package rotation
