// Package control provides the quadrotor flight controllers.
//
// Both controllers implement [dynamo.Controller] and share one attitude
// pipeline: a commanded world acceleration is mapped to a desired rotation
// and collective thrust by [AccelerationToAttitudeAndThrust], the SO(3)
// geodesic error drives the torque law, and [Saturation] clips the result.
//
//   - [LQR]: constant gains synthesized from two continuous-time Riccati
//     equations, one for position and one for attitude
//   - [PID]: integral-augmented position PID with PD attitude control
//
// [Mixer] turns the resulting wrench into four rotor-speed commands.
//
// # Usage
//
//	kind, err := control.ParseKind("LQR")
//	ctrl, err := control.New(kind, cfg)
//	mixer, err := control.NewMixer(cfg.Rotor, cfg.Limits)
//	w := ctrl.Compute(x, ref, dt)
//	cmd := mixer.Allocate(w)
package control
