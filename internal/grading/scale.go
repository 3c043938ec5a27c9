package grading

// Scale maps a score ratio linearly onto [Floor, Ceiling].
type Scale struct {
	Floor   float64 `yaml:"floor"`
	Ceiling float64 `yaml:"ceiling"`
}

// DefaultScale is the 1.0 to 7.0 grading scale.
var DefaultScale = Scale{Floor: 1.0, Ceiling: 7.0}

// Grade converts obtained/possible points into a grade. It returns Floor
// when possible is not positive and never leaves [Floor, Ceiling].
func (s Scale) Grade(obtained, possible float64) float64 {
	if possible <= 0 {
		return s.Floor
	}
	ratio := obtained / possible
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return s.Floor + (s.Ceiling-s.Floor)*ratio
}

// Percentage returns obtained/possible as a percentage, or 0 when possible is 0.
func Percentage(obtained, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return obtained / possible * 100
}

// Valid reports whether the scale has a usable range.
func (s Scale) Valid() bool {
	return s.Ceiling > s.Floor && s.Floor >= 0
}
