package hmm

import (
	"fmt"
	"sort"

	"QuantLab/internal/domain/models"
	"QuantLab/internal/services/stats"
)

const (
	LabelBull        = "Bull"
	LabelHighVolBull = "High-Vol Bull"
	LabelBear        = "Bear"
	LabelBearCrisis  = "Bear/Crisis"
	LabelNeutral     = "Neutral"
	LabelVolatile    = "Volatile"
)

// Labels names each state from its rank by mean and whether it is the most
// or least volatile state. The lowest-mean state is a Bear (Bear/Crisis when
// it is also the most volatile), the highest-mean state is a Bull (High-Vol
// Bull unless it is also the calmest), and the states between are Neutral or,
// when most volatile, Volatile. Volatility qualifiers need a real spread in
// volatility, and states that all share one mean are Neutral.
func Labels(p Params, periodsPerYear int) []models.RegimeLabel {
	k := p.NStates()
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return p.Means[order[a]] < p.Means[order[b]] })

	hiVol, loVol := 0, 0
	for j := 1; j < k; j++ {
		if p.Vols[j] > p.Vols[hiVol] {
			hiVol = j
		}
		if p.Vols[j] < p.Vols[loVol] {
			loVol = j
		}
	}

	volSpread := p.Vols[hiVol] > p.Vols[loVol]
	meanSpread := p.Means[order[k-1]] > p.Means[order[0]]

	out := make([]models.RegimeLabel, k)
	for rank, s := range order {
		var label string
		switch {
		case !meanSpread:
			label = LabelNeutral
		case rank == 0 && volSpread && s == hiVol:
			label = LabelBearCrisis
		case rank == 0:
			label = LabelBear
		case rank == k-1 && (!volSpread || s == loVol):
			label = LabelBull
		case rank == k-1:
			label = LabelHighVolBull
		case volSpread && s == hiVol:
			label = LabelVolatile
		default:
			label = LabelNeutral
		}
		out[s] = models.RegimeLabel{
			State: s,
			Label: label,
			Description: fmt.Sprintf("Avg Return: %.1f%%, Vol: %.1f%%",
				stats.AnnualizeReturn(p.Means[s], periodsPerYear)*100,
				stats.AnnualizeVolatility(p.Vols[s], periodsPerYear)*100),
		}
	}
	return out
}

// Statistics summarises the returns decoded into each state. States that
// never occur are omitted.
func Statistics(returns []float64, states []int, labels []models.RegimeLabel, periodsPerYear int) []models.RegimeStatistics {
	k := len(labels)
	buckets := make([][]float64, k)
	for t, s := range states {
		buckets[s] = append(buckets[s], returns[t])
	}

	out := make([]models.RegimeStatistics, 0, k)
	for s, rs := range buckets {
		if len(rs) == 0 {
			continue
		}
		mean, std := stats.PopMeanStd(rs)
		ann := stats.AnnualizeReturn(mean, periodsPerYear) * 100
		vol := stats.AnnualizeVolatility(std, periodsPerYear) * 100
		sharpe := 0.0
		if vol > 0 {
			sharpe = ann / vol
		}
		out = append(out, models.RegimeStatistics{
			State:                s,
			Label:                labels[s].Label,
			Days:                 len(rs),
			PctTime:              float64(len(rs)) / float64(len(states)) * 100,
			AvgReturnAnnualized:  ann,
			VolatilityAnnualized: vol,
			SharpeRatio:          sharpe,
		})
	}
	return out
}

// Report converts fitted per-period parameters to annualized percentages.
func Report(p Params, periodsPerYear int) models.HMMParameters {
	k := p.NStates()
	c := p.Clone()
	out := models.HMMParameters{
		NStates:             k,
		Means:               make([]float64, k),
		Volatilities:        make([]float64, k),
		TransitionMatrix:    c.Trans,
		InitialDistribution: c.Init,
	}
	for j := 0; j < k; j++ {
		out.Means[j] = stats.AnnualizeReturn(p.Means[j], periodsPerYear) * 100
		out.Volatilities[j] = stats.AnnualizeVolatility(p.Vols[j], periodsPerYear) * 100
	}
	return out
}
