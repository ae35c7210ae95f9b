// Package physics models the quadrotor plant.
//
// The plant is split the way the integration loop composes it:
//
//   - [Quadrotor]: nonlinear 6-DOF rigid body with quaternion attitude,
//     returning only the 13-element rigid-body derivative
//   - [Motor]: first-order rotor-speed lag supplying the remaining four
//     derivative slots
//   - [Disturbance]: periodic plus Gaussian force and torque, reseeded at
//     the start of each run
//
// Rotors are numbered 1..4 in an X layout with yaw-torque signs
// [+, -, +, -]. [Quadrotor.WrenchFromRotorSpeeds] is the forward map the
// control mixer inverts.
package physics
