package config

import "fmt"

// Validate checks vector dimensions and the ranges every component relies
// on. It does not judge whether gains produce a stable loop.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateQuad,
		c.validateActuation,
		c.validateDisturbance,
		c.validateGains,
		c.validateRun,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func positive(field string, v float64) error {
	if !(v > 0) {
		return fmt.Errorf("%w: %s must be positive, got %g", ErrMalformed, field, v)
	}
	return nil
}

func (c *Config) validateQuad() error {
	if err := positive("quad.mass", c.Quad.Mass); err != nil {
		return err
	}
	if err := positive("quad.gravity", c.Quad.Gravity); err != nil {
		return err
	}
	_, err := Matrix3("quad.inertia", c.Quad.Inertia)
	return err
}

func (c *Config) validateActuation() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"motor.tau", c.Motor.Tau},
		{"rotor.kf", c.Rotor.Kf},
		{"rotor.km", c.Rotor.Km},
		{"rotor.arm", c.Rotor.Arm},
		{"limits.omega_max", c.Limits.OmegaMax},
		{"limits.thrust_max", c.Limits.ThrustMax},
		{"limits.tau_max", c.Limits.TauMax},
	} {
		if err := positive(f.name, f.v); err != nil {
			return err
		}
	}
	l := c.Limits
	if l.OmegaMin < 0 || l.OmegaMin > l.OmegaMax {
		return fmt.Errorf("%w: limits.omega_min must lie in [0, omega_max]", ErrMalformed)
	}
	if l.ThrustMin < 0 || l.ThrustMin > l.ThrustMax {
		return fmt.Errorf("%w: limits.thrust_min must lie in [0, thrust_max]", ErrMalformed)
	}
	return nil
}

func (c *Config) validateDisturbance() error {
	d := c.Disturbance
	if d.Level < 0 || d.Level > NumLevels {
		return fmt.Errorf("%w: disturbance.level must be 0..%d, got %d", ErrMalformed, NumLevels, d.Level)
	}
	for _, amp := range []struct {
		name string
		m    [][]float64
	}{
		{"disturbance.force_amp", d.ForceAmp},
		{"disturbance.tau_amp", d.TauAmp},
	} {
		if len(amp.m) != NumLevels {
			return fmt.Errorf("%w: %s needs %d levels, got %d", ErrMalformed, amp.name, NumLevels, len(amp.m))
		}
		for i, row := range amp.m {
			if _, err := Vec3(fmt.Sprintf("%s[%d]", amp.name, i), row); err != nil {
				return err
			}
		}
	}
	for _, v := range []struct {
		name string
		s    []float64
	}{
		{"disturbance.force_freq_hz", d.ForceFreqHz},
		{"disturbance.force_phase", d.ForcePhase},
		{"disturbance.tau_freq_hz", d.TauFreqHz},
		{"disturbance.tau_phase", d.TauPhase},
	} {
		if _, err := Vec3(v.name, v.s); err != nil {
			return err
		}
	}
	if len(d.ForceSigma) != NumLevels || len(d.TauSigma) != NumLevels {
		return fmt.Errorf("%w: disturbance sigmas need %d levels", ErrMalformed, NumLevels)
	}
	return nil
}

func (c *Config) validateGains() error {
	for _, v := range []struct {
		name string
		s    []float64
	}{
		{"pid.kp_pos", c.PID.KpPos},
		{"pid.ki_pos", c.PID.KiPos},
		{"pid.kd_pos", c.PID.KdPos},
		{"pid.kp_r", c.PID.KpR},
		{"pid.kd_w", c.PID.KdW},
	} {
		if _, err := Vec3(v.name, v.s); err != nil {
			return err
		}
	}
	if c.PID.IntegLimit < 0 || c.LQR.IntegLimit < 0 {
		return fmt.Errorf("%w: integ_limit must be non-negative", ErrMalformed)
	}
	if err := positive("lqr.ro_acc", c.LQR.RoAcc); err != nil {
		return err
	}
	return positive("lqr.ri_tau", c.LQR.RiTau)
}

func (c *Config) validateRun() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"sim.dt", c.Sim.Dt},
		{"sim.t_hover", c.Sim.THover},
		{"sim.t_line", c.Sim.TLine},
		{"sim.t_circle", c.Sim.TCircle},
	} {
		if err := positive(f.name, f.v); err != nil {
			return err
		}
	}
	_, err := Vec3("initial.position", c.Initial.Position)
	return err
}
