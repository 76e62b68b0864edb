package features

import (
	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/idhash"
)

// AggregateVehicles groups records by plate and computes the per-vehicle
// rollups. Records without a plate are not grouped. Amounts are summed in
// input order, so callers pass records in a stable order.
func AggregateVehicles(records []*domain.MovementRecord) map[string]*domain.VehicleAggregate {
	aggs := make(map[string]*domain.VehicleAggregate)
	sites := make(map[string]map[string]struct{})

	for _, r := range records {
		if r.Plate == "" {
			continue
		}
		agg, ok := aggs[r.Plate]
		if !ok {
			agg = &domain.VehicleAggregate{Plate: r.Plate}
			aggs[r.Plate] = agg
			sites[r.Plate] = make(map[string]struct{})
		}
		agg.VisitFrequency++
		agg.TotalRevenue += r.AmountOrZero()
		if r.Organization != "" {
			sites[r.Plate][r.Organization] = struct{}{}
		}
	}

	for plate, agg := range aggs {
		agg.UniqueSites = len(sites[plate])
	}
	return aggs
}

// applyVehicle fans the vehicle rollup out onto one member record.
func applyVehicle(agg *domain.VehicleAggregate, opts *Options, f *domain.DerivedFeatureSet) {
	f.VehicleID = ptr(idhash.ComputeVehicleID(agg.Plate))
	f.VisitFrequency = ptr(agg.VisitFrequency)
	f.TotalRevenue = ptr(agg.TotalRevenue)
	f.UniqueSites = ptr(agg.UniqueSites)
	f.VehicleUsageCategory = ptr(opts.VehicleUsage.Categorize(float64(agg.VisitFrequency)))
	f.VehicleRevenueTier = ptr(opts.VehicleRevenue.Categorize(agg.TotalRevenue))
	f.IsMultiSiteVehicle = ptr(agg.UniqueSites > 1)
}
