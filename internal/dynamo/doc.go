// Package dynamo provides the core simulation primitives shared by the
// quadrotor plant, its controllers and the closed-loop simulator.
//
//   - [State]: 17-element vector [p(3), v(3), q(4), ω(3), rotor speeds(4)]
//   - [Wrench]: collective thrust and body torque requested by a controller
//   - [Reference]: desired position, velocity, feed-forward acceleration, yaw
//   - [System]: ODE right-hand side integrated by an [Integrator]
//   - [Controller]: maps a state snapshot and reference to a [Wrench]
//   - [Result]: equal-length trajectories logged by a run
//
// # Thread Safety
//
// None of the types here are safe for concurrent mutation. Independent runs
// each own their own plant, controller and random source.
package dynamo
