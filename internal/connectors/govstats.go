package connectors

import (
	"context"
	"math"
	"time"

	"AeroPulse/internal/domain/models"
)

// Official 2024 figures (AFAC, DataTur, ASA).
const (
	refYear                = 2024
	refPassengers          = 6_348_000
	refNationalPassengers  = 453_000_000
	refGrowthPct           = 141.3
	refPreviousGrowthPct   = 188.0
	refMarketSharePct      = 1.4
	refProjectedPassengers = 7_300_000
	refSatisfaction        = 90.14
	refNationalRanking     = 10
	refActiveGates         = 17
	refTotalGates          = 35
	refInvestmentMXNM      = 75_000.0
	refJobsGenerated       = 11_500

	directMultiplier   = 2.8
	indirectMultiplier = 4.2
	totalMultiplier    = 7.0
)

// GovStatsConnector serves validated government statistics. It makes no
// network calls and always reports REAL precision.
type GovStatsConnector struct{}

func NewGovStatsConnector() *GovStatsConnector {
	return &GovStatsConnector{}
}

func (c *GovStatsConnector) Name() string    { return SourceGovStats }
func (c *GovStatsConnector) Available() bool { return true }

func (c *GovStatsConnector) TestConnection(context.Context) models.HealthStatus {
	return models.HealthStatus{
		Source:    SourceGovStats,
		Available: true,
		Healthy:   true,
		Detail:    "static reference data",
		CheckedAt: time.Now().UTC(),
	}
}

func (c *GovStatsConnector) FetchReferenceStats(context.Context) models.SourceResult[models.ReferenceStats] {
	return models.Real(SourceGovStats, ReferenceStats())
}

// ReferenceStats returns the official figures with derived values filled in.
// Spillover is in MXN millions, investment per passenger in MXN.
func ReferenceStats() models.ReferenceStats {
	pax := float64(refPassengers)
	return models.ReferenceStats{
		Year:                   refYear,
		Passengers:             refPassengers,
		NationalPassengers:     refNationalPassengers,
		PassengerGrowthPct:     refGrowthPct,
		PreviousGrowthPct:      refPreviousGrowthPct,
		MarketSharePct:         refMarketSharePct,
		ProjectedPassengers:    refProjectedPassengers,
		Satisfaction:           refSatisfaction,
		NationalRanking:        refNationalRanking,
		ActiveGates:            refActiveGates,
		TotalGates:             refTotalGates,
		GateUtilizationPct:     round1(float64(refActiveGates) / refTotalGates * 100),
		PassengersPerGate:      pax / refActiveGates,
		InvestmentMXNMillions:  refInvestmentMXNM,
		JobsGenerated:          refJobsGenerated,
		DirectSpillover:        pax * directMultiplier / 1000,
		IndirectSpillover:      pax * indirectMultiplier / 1000,
		TotalSpillover:         pax * totalMultiplier / 1000,
		InvestmentPerPassenger: refInvestmentMXNM * 1_000_000 / pax,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
