package stats

import (
	"math"
	"math/big"
)

// Algorithm turns an owner's CurrentBase values and modifiers into
// CurrentValue.
type Algorithm interface {
	RefreshStats(o *Owner)
}

// Handler is one pass of a modifier algorithm. Handlers adjust CurrentValue
// in place; Pipeline resets it to CurrentBase before the first pass.
type Handler interface {
	Apply(o *Owner)
}

// AdditiveHandler adds the sum of each stat's additive modifiers.
type AdditiveHandler struct{}

// Apply implements Handler.
func (AdditiveHandler) Apply(o *Owner) {
	sums := make(map[StatID]int64)
	for _, m := range o.Modifiers() {
		if m.Op == OpAdd {
			sums[m.Stat] += m.Value
		}
	}
	for id, sum := range sums {
		if s := o.stats[id]; s != nil {
			s.CurrentValue += sum
		}
	}
}

// MultiplicativeHandler scales each stat by the product of its
// multiplicative modifiers, v * Π(100+pct) / 100^n, truncated toward zero
// once at the end.
type MultiplicativeHandler struct{}

// Apply implements Handler.
func (MultiplicativeHandler) Apply(o *Owner) {
	type factor struct{ num, den *big.Int }
	factors := make(map[StatID]factor)
	hundred := big.NewInt(100)
	for _, m := range o.Modifiers() {
		if m.Op != OpMul || o.stats[m.Stat] == nil {
			continue
		}
		f, ok := factors[m.Stat]
		if !ok {
			f = factor{num: big.NewInt(1), den: big.NewInt(1)}
			factors[m.Stat] = f
		}
		f.num.Mul(f.num, big.NewInt(100+m.Value))
		f.den.Mul(f.den, hundred)
	}
	for id, f := range factors {
		s := o.stats[id]
		v := new(big.Int).Mul(big.NewInt(s.CurrentValue), f.num)
		s.CurrentValue = clampInt64(v.Quo(v, f.den))
	}
}

func clampInt64(v *big.Int) int64 {
	switch {
	case v.IsInt64():
		return v.Int64()
	case v.Sign() > 0:
		return math.MaxInt64
	default:
		return math.MinInt64
	}
}

// Pipeline runs handlers in order, starting from CurrentBase, so a refresh
// never compounds on the previous one whatever the handler order.
type Pipeline []Handler

// RefreshStats implements Algorithm.
func (p Pipeline) RefreshStats(o *Owner) {
	for _, s := range o.stats {
		s.CurrentValue = s.CurrentBase
	}
	for _, h := range p {
		h.Apply(o)
	}
}

// DefaultAlgorithm is the additive pass followed by the multiplicative pass.
type DefaultAlgorithm struct{}

// RefreshStats implements Algorithm.
func (DefaultAlgorithm) RefreshStats(o *Owner) {
	Pipeline{AdditiveHandler{}, MultiplicativeHandler{}}.RefreshStats(o)
}
