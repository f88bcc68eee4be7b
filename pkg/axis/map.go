package axis

// Map converts a raw reading into a calibrated, dead-zoned value. Sticks
// produce [-1, 1] and triggers produce [0, 1].
//
// The two sides of a stick are normalized independently so that the
// calibrated center always maps to exactly 0, even when the physical
// center sits off the middle of the raw range. A side with a zero (or
// inverted) span is saturated instead of divided by.
func Map(raw int, cal Calibration, dz DeadZone, class Class) float64 {
	var norm float64
	if class == ClassTrigger {
		norm = normalizeTrigger(raw, cal)
	} else {
		norm = normalizeStick(raw, cal)
	}
	return applyDeadZone(norm, dz.Threshold)
}

// MapAxis is Map with the class taken from the calibration's axis.
func MapAxis(raw int, cal Calibration, dz DeadZone) float64 {
	return Map(raw, cal, dz, cal.Axis.Class())
}

func normalizeStick(raw int, cal Calibration) float64 {
	switch {
	case raw == cal.RawCenter:
		return 0
	case raw < cal.RawCenter:
		span := cal.RawCenter - cal.RawMin
		if span <= 0 {
			return -1
		}
		return clamp(float64(raw-cal.RawCenter)/float64(span), -1, 1)
	default:
		span := cal.RawMax - cal.RawCenter
		if span <= 0 {
			return 1
		}
		return clamp(float64(raw-cal.RawCenter)/float64(span), -1, 1)
	}
}

func normalizeTrigger(raw int, cal Calibration) float64 {
	if raw <= cal.RawCenter {
		return 0
	}
	span := cal.RawMax - cal.RawCenter
	if span <= 0 {
		return 1
	}
	return clamp(float64(raw-cal.RawCenter)/float64(span), 0, 1)
}

// applyDeadZone zeroes |norm| <= t and stretches the rest so that the
// extremes still reach ±1.
func applyDeadZone(norm, t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t >= 1 {
		return 0
	}

	mag := norm
	sign := 1.0
	if norm < 0 {
		mag = -norm
		sign = -1
	}
	if mag <= t {
		return 0
	}
	return sign * (mag - t) / (1 - t)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
