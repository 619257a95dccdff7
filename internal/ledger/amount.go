package ledger

import "github.com/fanvault/ledger/internal/rules"

// totalBps is 100% expressed in basis points.
const totalBps int64 = 10000

// halfUp divides n by d rounding half away from zero. Amounts are magnitudes
// so n is never negative here.
func halfUp(n, d int64) int64 {
	return (n + d/2) / d
}

// CommissionFor computes the platform's cut of a gross amount: the rate
// applied half-up to the smallest currency unit, plus the flat fee, capped at
// the gross so the net can never go negative.
func CommissionFor(gross int64, cfg rules.Config) int64 {
	c := halfUp(gross*cfg.CommissionRateBps, totalBps) + cfg.PlatformFee
	if c > gross {
		c = gross
	}
	return c
}

// splitNet distributes a net amount across payees by their basis-point
// shares. Intermediate payees round down; the final payee absorbs the
// remainder so the credited legs always sum to exactly net.
func splitNet(net int64, payees []Payee) []int64 {
	out := make([]int64, len(payees))
	var assigned int64
	for i, p := range payees {
		if i == len(payees)-1 {
			out[i] = net - assigned
			break
		}
		out[i] = net * p.ShareBps / totalBps
		assigned += out[i]
	}
	return out
}
