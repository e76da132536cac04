package fare

// Signal is the outcome of one surge calculator. An unavailable signal
// contributes nothing to the fare; Err says why it was unavailable.
type Signal struct {
	Value float64
	OK    bool
	Err   error
}

func available(v float64) Signal {
	return Signal{Value: v, OK: true}
}

func unavailable(err error) Signal {
	return Signal{Err: err}
}

// Or returns the value, or fallback when the signal is unavailable.
func (s Signal) Or(fallback float64) float64 {
	if !s.OK {
		return fallback
	}
	return s.Value
}
