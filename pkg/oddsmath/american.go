package oddsmath

import (
	"fmt"
	"math"
)

// AmericanToDecimal converte odds americanas para odds decimais.
// +150 -> 2.50, -150 -> 1.6667
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid american odds: cannot be 0")
	}
	if american > 0 {
		return (float64(american) / 100.0) + 1.0, nil
	}
	return (100.0 / float64(-american)) + 1.0, nil
}

// DecimalToAmerican converte odds decimais para americanas.
// 2.50 -> +150, 1.6667 -> -150
func DecimalToAmerican(decimal float64) (int, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 1.0")
	}
	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0)), nil
	}
	return int(math.Round(-100.0 / (decimal - 1.0))), nil
}

// PayoutCents calcula o retorno total (stake + ganho) em centavos
// para uma odd americana. Arredonda para o centavo mais próximo.
func PayoutCents(stakeCents int64, american int) int64 {
	if american > 0 {
		return stakeCents + int64(math.Round(float64(stakeCents)*float64(american)/100.0))
	}
	return stakeCents + int64(math.Round(float64(stakeCents)*100.0/float64(-american)))
}

/// ParlayAmerican combina as odds das pernas de um parlay:
// produto das odds decimais convertido de volta para americano.
func ParlayAmerican(legs []int) (int, error) {
	if len(legs) == 0 {
		return 0, fmt.Errorf("parlay requires at least one leg")
	}
	combined := 1.0
	for _, odd := range legs {
		dec, err := AmericanToDecimal(odd)
		if err != nil {
			return 0, err
		}
		combined *= dec
	}
	return DecimalToAmerican(combined)
}

// Drift é a distância absoluta em pontos americanos entre a odd
// esperada pelo apostador e a odd corrente.
func Drift(expected, current int) int {
	d := current - expected
	if d < 0 {
		return -d
	}
	return d
}
