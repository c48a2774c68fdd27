package model

// SelectionState is the per-session selection of process groups and options.
// SelectedOptions is derived from SelectedGroups whenever the groups change.
type SelectionState struct {
	SelectedGroups  []string `json:"selected_groups"`
	SelectedOptions []string `json:"selected_options"`
	Status          string   `json:"status"`
}

// Catalog lists the choices a market-process page offers
type Catalog struct {
	Groups      []string          `json:"groups"`
	Options     []string          `json:"options"`
	Statuses    []string          `json:"statuses"`
	OptionGroup map[string]string `json:"option_group"`
}

// GeoPoint is one installation located by its postal area
type GeoPoint struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	PostalCode string  `json:"postal_code"`
}

// InstallationOverview bundles every installation aggregate a page renders
type InstallationOverview struct {
	Units          *RunningTotals `json:"units"`
	Capacity       *RunningTotals `json:"capacity"`
	UnitsByYear    []YearTotal    `json:"units_by_year"`
	CapacityByYear []YearTotal    `json:"capacity_by_year"`
	UnitsByMonth   *WideTable     `json:"units_by_month"`
	Points         []GeoPoint     `json:"points"`
	ByGridArea     *LongTable     `json:"by_grid_area"`
}
