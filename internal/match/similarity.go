package match

import "math"

// TokenSetRatio scores two names on a 0-100 scale using the Sørensen-Dice
// coefficient over their normalized token sets:
//
//	ratio = round(200 * |A ∩ B| / (|A| + |B|))
//
// The metric is symmetric and order-insensitive; "Club Padel Indoor" and
// "Indoor Padel Club" score 100. Either side empty scores 0: a record
// without a name carries no fuzzy-match signal.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}

	return int(math.Round(200 * float64(inter) / float64(len(ta)+len(tb))))
}
