package util

import (
	"fmt"
	"math"
	"math/bits"
	"time"
)

// Fraction is an exact rational number. The zero value is 0/0 and reports
// Valid() == false.
type Fraction struct {
	Num int64
	Den int64
}

func NewFraction(num, den int64) Fraction {
	return Fraction{Num: num, Den: den}.Reduce()
}

func abs64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func GCD(a, b int64) int64 {
	x, y := abs64(a), abs64(b)
	for y != 0 {
		x, y = y, x%y
	}
	return int64(x)
}

func LCM(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	return int64(abs64(a) / uint64(GCD(a, b)) * abs64(b))
}

func (f Fraction) Valid() bool {
	return f.Den != 0
}

func (f Fraction) Reduce() Fraction {
	if f.Den == 0 {
		return f
	}
	if f.Den < 0 {
		f.Num, f.Den = -f.Num, -f.Den
	}
	if g := GCD(f.Num, f.Den); g > 1 {
		f.Num /= g
		f.Den /= g
	}
	return f
}

// WithDen expresses f over den when den is a multiple of the reduced denominator.
func (f Fraction) WithDen(den int64) (Fraction, bool) {
	r := f.Reduce()
	if r.Den == 0 || den%r.Den != 0 {
		return f, false
	}
	return Fraction{Num: r.Num * (den / r.Den), Den: den}, true
}

func (f Fraction) Add(o Fraction) Fraction {
	if f.Den == o.Den {
		return Fraction{f.Num + o.Num, f.Den}.Reduce()
	}
	d := LCM(f.Den, o.Den)
	return Fraction{f.Num*(d/f.Den) + o.Num*(d/o.Den), d}.Reduce()
}

func (f Fraction) Sub(o Fraction) Fraction {
	return f.Add(Fraction{-o.Num, o.Den})
}

func (f Fraction) Mul(o Fraction) Fraction {
	a, b := Fraction{f.Num, o.Den}.Reduce(), Fraction{o.Num, f.Den}.Reduce()
	return Fraction{a.Num * b.Num, a.Den * b.Den}.Reduce()
}

// Cmp compares exactly using 128-bit cross products.
func (f Fraction) Cmp(o Fraction) int {
	f, o = f.Reduce(), o.Reduce()
	sf, so := sign(f.Num), sign(o.Num)
	if sf != so {
		if sf < so {
			return -1
		}
		return 1
	}
	hiA, loA := bits.Mul64(abs64(f.Num), uint64(o.Den))
	hiB, loB := bits.Mul64(abs64(o.Num), uint64(f.Den))
	c := 0
	switch {
	case hiA < hiB || (hiA == hiB && loA < loB):
		c = -1
	case hiA > hiB || (hiA == hiB && loA > loB):
		c = 1
	}
	return c * sf
}

func sign(v int64) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// Scale returns floor(f * timescale).
func (f Fraction) Scale(timescale uint32) int64 {
	if f.Den == 0 {
		return 0
	}
	r := f.Reduce()
	return Rescale(r.Num, uint64(r.Den), uint64(timescale))
}

func (f Fraction) Duration() time.Duration {
	if f.Den == 0 {
		return 0
	}
	r := f.Reduce()
	return time.Duration(RescaleRound(r.Num, uint64(r.Den), uint64(time.Second)))
}

func (f Fraction) Seconds() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// Rescale converts v from one timescale to another, rounding toward negative
// infinity. The product is kept in 128 bits; results that do not fit in int64
// saturate.
func Rescale(v int64, from, to uint64) int64 {
	return rescale(v, from, to, false)
}

// RescaleRound is Rescale rounding to the nearest unit.
func RescaleRound(v int64, from, to uint64) int64 {
	return rescale(v, from, to, true)
}

func rescale(v int64, from, to uint64, round bool) int64 {
	if from == 0 {
		return 0
	}
	if from == to {
		return v
	}
	hi, lo := bits.Mul64(abs64(v), to)
	if round {
		var carry uint64
		lo, carry = bits.Add64(lo, from/2, 0)
		hi += carry
	} else if v < 0 {
		// floor for negatives: -(ceil(|v|*to/from))
		var carry uint64
		lo, carry = bits.Add64(lo, from-1, 0)
		hi += carry
	}
	if hi >= from {
		if v < 0 {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, from)
	if q > math.MaxInt64 {
		q = math.MaxInt64
	}
	if v < 0 {
		return -int64(q)
	}
	return int64(q)
}
