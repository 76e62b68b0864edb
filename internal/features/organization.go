package features

import (
	"vehicle-intelligence/internal/domain"
)

// AggregateOrganizations groups records by organization: distinct plates and
// summed amounts. Records without an organization are not grouped.
func AggregateOrganizations(records []*domain.MovementRecord) map[string]*domain.OrganizationAggregate {
	aggs := make(map[string]*domain.OrganizationAggregate)
	plates := make(map[string]map[string]struct{})

	for _, r := range records {
		if r.Organization == "" {
			continue
		}
		agg, ok := aggs[r.Organization]
		if !ok {
			agg = &domain.OrganizationAggregate{Organization: r.Organization}
			aggs[r.Organization] = agg
			plates[r.Organization] = make(map[string]struct{})
		}
		agg.TotalRevenue += r.AmountOrZero()
		if r.Plate != "" {
			plates[r.Organization][r.Plate] = struct{}{}
		}
	}

	for org, agg := range aggs {
		agg.VehicleCount = len(plates[org])
	}
	return aggs
}

func applyOrganization(agg *domain.OrganizationAggregate, opts *Options, f *domain.DerivedFeatureSet) {
	f.OrgVehicleCount = ptr(agg.VehicleCount)
	f.OrgTotalRevenue = ptr(agg.TotalRevenue)
	f.OrganizationSizeCategory = ptr(opts.OrganizationSize.Categorize(float64(agg.VehicleCount)))
	f.OrganizationPerformanceTier = ptr(opts.OrganizationPerformance.Categorize(agg.TotalRevenue))
}
