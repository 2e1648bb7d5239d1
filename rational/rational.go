// Package rational provides exact beat arithmetic.
//
// Onsets and durations are kept as reduced int64 fractions of a quarter note so
// bar boundaries, ties and tuplets compare exactly.
package rational

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rat is an immutable reduced fraction. The zero value is 0.
type Rat struct {
	num int64
	den int64
}

// Zero is 0/1
var Zero = Rat{0, 1}

// One is 1/1
var One = Rat{1, 1}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// New returns num/den in lowest terms. It panics when den is zero.
func New(num, den int64) Rat {
	if den == 0 {
		panic("rational: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if num == 0 {
		return Rat{0, 1}
	}
	g := gcd(num, den)
	return Rat{num / g, den / g}
}

// FromInt returns n/1
func FromInt(n int64) Rat {
	return Rat{n, 1}
}

// FromFloat approximates f by the closest fraction with denominator at most
// maxDen (continued fraction convergents).
func FromFloat(f float64, maxDen int64) Rat {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero
	}
	if maxDen < 1 {
		maxDen = 1
	}
	sign := int64(1)
	if f < 0 {
		sign = -1
		f = -f
	}

	var h0, h1 int64 = 0, 1
	var k0, k1 int64 = 1, 0
	x := f
	for i := 0; i < 64; i++ {
		a := int64(math.Floor(x))
		h2 := a*h1 + h0
		k2 := a*k1 + k0
		if k2 > maxDen {
			break
		}
		h0, h1 = h1, h2
		k0, k1 = k1, k2
		frac := x - float64(a)
		if frac < 1e-12 {
			break
		}
		x = 1 / frac
	}
	if k1 == 0 {
		return Zero
	}
	return New(sign*h1, k1)
}

// Parse reads "n", "n/d" or a decimal such as "1.5"
func Parse(s string) (Rat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("empty rational")
	}
	if n, d, ok := strings.Cut(s, "/"); ok {
		num, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return Zero, fmt.Errorf("invalid numerator in %q: %w", s, err)
		}
		den, err := strconv.ParseInt(strings.TrimSpace(d), 10, 64)
		if err != nil {
			return Zero, fmt.Errorf("invalid denominator in %q: %w", s, err)
		}
		if den == 0 {
			return Zero, fmt.Errorf("zero denominator in %q", s)
		}
		return New(num, den), nil
	}
	if whole, frac, ok := strings.Cut(s, "."); ok {
		neg := strings.HasPrefix(whole, "-")
		w := int64(0)
		if trimmed := strings.TrimPrefix(whole, "-"); trimmed != "" {
			v, err := strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				return Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
			}
			w = v
		}
		if len(frac) > 15 {
			frac = frac[:15]
		}
		den := int64(1)
		f := int64(0)
		if frac != "" {
			v, err := strconv.ParseInt(frac, 10, 64)
			if err != nil {
				return Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
			}
			f = v
			for range frac {
				den *= 10
			}
		}
		r := New(w*den+f, den)
		if neg {
			r = r.Neg()
		}
		return r, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("invalid rational %q: %w", s, err)
	}
	return FromInt(n), nil
}

func (r Rat) norm() Rat {
	if r.den == 0 {
		return Rat{0, 1}
	}
	return r
}

// Num returns the numerator
func (r Rat) Num() int64 { return r.norm().num }

// Den returns the (positive) denominator
func (r Rat) Den() int64 { return r.norm().den }

// Add returns r + o
func (r Rat) Add(o Rat) Rat {
	r, o = r.norm(), o.norm()
	if r.den == o.den {
		return New(r.num+o.num, r.den)
	}
	g := gcd(r.den, o.den)
	return New(r.num*(o.den/g)+o.num*(r.den/g), r.den/g*o.den)
}

// Sub returns r - o
func (r Rat) Sub(o Rat) Rat {
	return r.Add(o.Neg())
}

// Mul returns r * o
func (r Rat) Mul(o Rat) Rat {
	r, o = r.norm(), o.norm()
	g1 := gcd(r.num, o.den)
	g2 := gcd(o.num, r.den)
	if g1 == 0 {
		g1 = 1
	}
	if g2 == 0 {
		g2 = 1
	}
	return New((r.num/g1)*(o.num/g2), (r.den/g2)*(o.den/g1))
}

// MulInt returns r * n
func (r Rat) MulInt(n int64) Rat {
	return r.Mul(FromInt(n))
}

// Div returns r / o. It panics when o is zero.
func (r Rat) Div(o Rat) Rat {
	o = o.norm()
	if o.num == 0 {
		panic("rational: division by zero")
	}
	return r.Mul(Rat{o.den, o.num}.fixSign())
}

func (r Rat) fixSign() Rat {
	if r.den < 0 {
		return Rat{-r.num, -r.den}
	}
	return r
}

// Neg returns -r
func (r Rat) Neg() Rat {
	r = r.norm()
	return Rat{-r.num, r.den}
}

// Abs returns |r|
func (r Rat) Abs() Rat {
	if r.Sign() < 0 {
		return r.Neg()
	}
	return r.norm()
}

// Sign returns -1, 0 or +1
func (r Rat) Sign() int {
	switch n := r.norm().num; {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// IsZero reports whether r == 0
func (r Rat) IsZero() bool { return r.Sign() == 0 }

// Cmp compares r and o (-1, 0, +1)
func (r Rat) Cmp(o Rat) int {
	return r.Sub(o).Sign()
}

// Less reports r < o
func (r Rat) Less(o Rat) bool { return r.Cmp(o) < 0 }

// LessEq reports r <= o
func (r Rat) LessEq(o Rat) bool { return r.Cmp(o) <= 0 }

// Equal reports r == o
func (r Rat) Equal(o Rat) bool { return r.Cmp(o) == 0 }

// Float64 converts to the nearest float
func (r Rat) Float64() float64 {
	r = r.norm()
	return float64(r.num) / float64(r.den)
}

// Floor returns the largest integer <= r
func (r Rat) Floor() int64 {
	r = r.norm()
	q := r.num / r.den
	if r.num%r.den != 0 && r.num < 0 {
		q--
	}
	return q
}

// Mod returns r modulo m in [0, m). m must be positive.
func (r Rat) Mod(m Rat) Rat {
	q := r.Div(m).Floor()
	return r.Sub(m.MulInt(q))
}

// Quantize rounds r to the nearest multiple of 1/den, halves rounding up
func (r Rat) Quantize(den int64) Rat {
	scaled := r.MulInt(den)
	n := scaled.Floor()
	if scaled.Sub(FromInt(n)).Cmp(New(1, 2)) >= 0 {
		n++
	}
	return New(n, den)
}

// Min returns the smaller of a and b
func Min(a, b Rat) Rat {
	if b.Less(a) {
		return b
	}
	return a.norm()
}

// Max returns the larger of a and b
func Max(a, b Rat) Rat {
	if a.Less(b) {
		return b
	}
	return a.norm()
}

// String renders "n" or "n/d"
func (r Rat) String() string {
	r = r.norm()
	if r.den == 1 {
		return strconv.FormatInt(r.num, 10)
	}
	return strconv.FormatInt(r.num, 10) + "/" + strconv.FormatInt(r.den, 10)
}

// MarshalText implements encoding.TextMarshaler
func (r Rat) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Rat) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
