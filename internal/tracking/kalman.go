package tracking

// KalmanConfig holds the constant-velocity Kalman filter's noise terms:
// process noise for position and velocity, and measurement noise.
type KalmanConfig struct {
	ProcessNoisePos  float64
	ProcessNoiseVel  float64
	MeasurementNoise float64
}

// DefaultKalmanConfig returns reasonable default noise terms.
func DefaultKalmanConfig() KalmanConfig {
	return KalmanConfig{
		ProcessNoisePos:  0.1,
		ProcessNoiseVel:  0.5,
		MeasurementNoise: 0.2,
	}
}

const minDeterminant = 1e-9

// predict advances a track's (x, y) Kalman state by dt using a constant
// velocity model, and carries z forward linearly with an unfiltered
// passthrough.
func predict(t *Track, dt float64, cfg KalmanConfig) {
	t.Position.X += t.Velocity.X * dt
	t.Position.Y += t.Velocity.Y * dt
	t.Position.Z += t.Velocity.Z * dt
	t.Predicted = t.Position

	P := t.cov
	var fp [16]float64
	for j := 0; j < 4; j++ {
		fp[0*4+j] = P[0*4+j] + dt*P[2*4+j]
		fp[1*4+j] = P[1*4+j] + dt*P[3*4+j]
		fp[2*4+j] = P[2*4+j]
		fp[3*4+j] = P[3*4+j]
	}
	for i := 0; i < 4; i++ {
		t.cov[i*4+0] = fp[i*4+0] + dt*fp[i*4+2]
		t.cov[i*4+1] = fp[i*4+1] + dt*fp[i*4+3]
		t.cov[i*4+2] = fp[i*4+2]
		t.cov[i*4+3] = fp[i*4+3]
	}
	t.cov[0*4+0] += cfg.ProcessNoisePos
	t.cov[1*4+1] += cfg.ProcessNoisePos
	t.cov[2*4+2] += cfg.ProcessNoiseVel
	t.cov[3*4+3] += cfg.ProcessNoiseVel
}

// kalmanUpdate absorbs a matched measurement, smoothing (x, y, vx, vy) via
// the standard Kalman gain and carrying z through as a direct replacement.
// Repeated calls with an identical measurement converge rather than drift,
// so updates stay idempotent for identical inputs.
func kalmanUpdate(t *Track, measured Vec3, cfg KalmanConfig) {
	P := t.cov

	s00 := P[0*4+0] + cfg.MeasurementNoise
	s01 := P[0*4+1]
	s10 := P[1*4+0]
	s11 := P[1*4+1] + cfg.MeasurementNoise

	det := s00*s11 - s01*s10
	if det < minDeterminant {
		// Singular innovation covariance: accept the measurement directly
		// rather than reject it outright, so the track never stalls.
		t.Velocity.X = measured.X - t.Position.X
		t.Velocity.Y = measured.Y - t.Position.Y
		t.Position.X, t.Position.Y, t.Position.Z = measured.X, measured.Y, measured.Z
		return
	}

	invS00 := s11 / det
	invS01 := -s01 / det
	invS10 := -s10 / det
	invS11 := s00 / det

	yx := measured.X - t.Position.X
	yy := measured.Y - t.Position.Y

	var k [8]float64
	for i := 0; i < 4; i++ {
		k[i*2+0] = P[i*4+0]*invS00 + P[i*4+1]*invS10
		k[i*2+1] = P[i*4+0]*invS01 + P[i*4+1]*invS11
	}

	t.Position.X += k[0*2+0]*yx + k[0*2+1]*yy
	t.Position.Y += k[1*2+0]*yx + k[1*2+1]*yy
	t.Velocity.X += k[2*2+0]*yx + k[2*2+1]*yy
	t.Velocity.Y += k[3*2+0]*yx + k[3*2+1]*yy
	t.Position.Z = measured.Z

	var iMinusKH [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			identity := 0.0
			if i == j {
				identity = 1
			}
			kh := 0.0
			if j == 0 {
				kh = k[i*2+0]
			} else if j == 1 {
				kh = k[i*2+1]
			}
			iMinusKH[i*4+j] = identity - kh
		}
	}
	var newP [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			sum := 0.0
			for kk := 0; kk < 4; kk++ {
				sum += iMinusKH[i*4+kk] * P[kk*4+j]
			}
			newP[i*4+j] = sum
		}
	}
	t.cov = newP
}
