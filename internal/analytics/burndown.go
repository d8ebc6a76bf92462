package analytics

import (
    "math"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

// ComputeIdealBurndown derives the ideal depletion line for a sprint's
// work window: linear from the actual day-0 remaining down to exactly
// zero on the last day. Anchoring on the first actual point (instead of
// committed scope) keeps the two lines starting at the same height even
// when the sprint opened below its committed total.
func ComputeIdealBurndown(remainingWorkByDay []domain.RemainingWorkPoint) []domain.RemainingWorkPoint {
    if len(remainingWorkByDay) == 0 { return []domain.RemainingWorkPoint{} }

    totalSP := remainingWorkByDay[0].RemainingSP
    n := len(remainingWorkByDay)
    if n == 1 {
        return []domain.RemainingWorkPoint{{Date: remainingWorkByDay[0].Date, RemainingSP: totalSP}}
    }

    out := make([]domain.RemainingWorkPoint, n)
    for i, p := range remainingWorkByDay {
        pct := float64(i) / float64(n-1)
        remaining := math.Round((totalSP-totalSP*pct)*100) / 100
        // guards against a negative totalSP input only
        if remaining < 0 { remaining = 0 }
        out[i] = domain.RemainingWorkPoint{Date: p.Date, RemainingSP: remaining}
    }
    return out
}
