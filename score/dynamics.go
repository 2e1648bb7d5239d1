package score

import "fmt"

// Dynamic is a named loudness level
type Dynamic string

const (
	PPP Dynamic = "ppp"
	PP  Dynamic = "pp"
	P   Dynamic = "p"
	MP  Dynamic = "mp"
	MF  Dynamic = "mf"
	F   Dynamic = "f"
	FF  Dynamic = "ff"
	FFF Dynamic = "fff"
)

var dynamicVelocities = []struct {
	dynamic  Dynamic
	velocity int
}{
	{PPP, 16}, {PP, 33}, {P, 49}, {MP, 64}, {MF, 80}, {F, 96}, {FF, 112}, {FFF, 127},
}

// DynamicOf rounds a MIDI velocity to the nearest named dynamic; halfway
// values go to the softer one
func DynamicOf(velocity int) Dynamic {
	best := dynamicVelocities[0]
	for _, dv := range dynamicVelocities[1:] {
		if abs(velocity-dv.velocity) < abs(velocity-best.velocity) {
			best = dv
		}
	}
	return best.dynamic
}

// Velocity is the MIDI velocity of the dynamic, mf for unknown names
func (d Dynamic) Velocity() int {
	for _, dv := range dynamicVelocities {
		if dv.dynamic == d {
			return dv.velocity
		}
	}
	return 80
}

// ParseDynamic validates a dynamic name
func ParseDynamic(s string) (Dynamic, error) {
	for _, dv := range dynamicVelocities {
		if string(dv.dynamic) == s {
			return dv.dynamic, nil
		}
	}
	return "", fmt.Errorf("unknown dynamic %q", s)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
