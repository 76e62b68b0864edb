package domain

// VehicleAggregate is the per-plate rollup fanned out onto member records.
// Recomputed every run, never persisted on its own.
type VehicleAggregate struct {
	Plate          string
	VisitFrequency int     // record count
	TotalRevenue   float64 // sum of amounts, NULL as 0
	UniqueSites    int     // distinct organizations
}

// OrganizationAggregate is the per-organization rollup fanned out onto member records.
type OrganizationAggregate struct {
	Organization string
	VehicleCount int     // distinct plates
	TotalRevenue float64 // sum of amounts, NULL as 0
}
