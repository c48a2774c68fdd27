package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"go-elhub-stats/internal/config"
	"go-elhub-stats/internal/model"
	"go-elhub-stats/internal/selection"
	"go-elhub-stats/pkg/utils"
)

// Page names, also used as load-run pages and export prefixes
const (
	PageMarketProcesses = "markedsprosesser"
	PageInstallations   = "plusskunder"
)

// Columns of the joined market-process table
const (
	ColUsageDate = "usage_date"
	ColBRS       = "brs"
	ColGroup     = "group"
	ColState     = "state"
	ColCount     = "count"
	ColYear      = "year"
	ColMonth     = "month"
)

// Columns of the joined installation table
const (
	ColID         = "id"
	ColPostalCode = "postal_code"
	ColPostalArea = "postal_area"
	ColLat        = "lat"
	ColLon        = "lon"
	ColGridArea   = "grid_area"
	ColCapacity   = "installed_capacity"
	ColValidFrom  = "valid_from"
	ColValidTo    = "valid_to"
)

var defaultNullMarkers = []string{"NaN", "NaT", "<NA>"}

// ------------------- Load specs -------------------

// MarketProcessSpec describes the market-process log joined with its process
// and state dimensions.
func MarketProcessSpec(cfg config.Config) (model.LoadSpec, error) {
	delim, err := config.Delimiter(cfg.Market.Delimiter)
	if err != nil {
		return model.LoadSpec{}, err
	}

	return model.LoadSpec{
		Name: PageMarketProcesses,
		Fact: model.SourceSpec{
			Name:      "mplog",
			Path:      cfg.Market.FactPath,
			Delimiter: delim,
			Schema: model.Schema{
				{Name: ColUsageDate, Type: model.TypeMonthYear},
				{Name: ColBRS, Type: model.TypeInt},
				{Name: ColState, Type: model.TypeInt},
				{Name: ColCount, Type: model.TypeInt, Nullable: true},
			},
			NullMarkers: defaultNullMarkers,
		},
		Joins: []model.JoinSpec{
			{
				Source: model.SourceSpec{
					Name:      "dim_brs",
					Path:      cfg.Market.BRSPath,
					Delimiter: delim,
					Schema: model.Schema{
						{Name: "id", Type: model.TypeInt},
						{Name: "process_code", Type: model.TypeString},
						{Name: "group", Type: model.TypeString},
					},
				},
				LeftKey:  ColBRS,
				RightKey: "id",
				Fields:   map[string]string{"process_code": "process_code", "group": "group"},
			},
			{
				Source: model.SourceSpec{
					Name:      "dim_mpstate",
					Path:      cfg.Market.StatePath,
					Delimiter: delim,
					Schema: model.Schema{
						{Name: "id", Type: model.TypeInt},
						{Name: "status_kode", Type: model.TypeString},
					},
				},
				LeftKey:  ColState,
				RightKey: "id",
				Fields:   map[string]string{"status_kode": "status_kode"},
			},
		},
		Select: []model.Projection{
			{From: ColUsageDate, To: ColUsageDate},
			{From: "process_code", To: ColBRS},
			{From: "group", To: ColGroup},
			{From: "status_kode", To: ColState},
			{From: ColCount, To: ColCount},
		},
		Calendar: []model.CalendarSpec{{Source: ColUsageDate, Year: ColYear, Month: ColMonth}},
		Zone:     cfg.Timezone,
	}, nil
}

// InstallationSpec describes the installation records joined with postal areas
// and, when configured, grid areas.
func InstallationSpec(cfg config.Config) (model.LoadSpec, error) {
	delim, err := config.Delimiter(cfg.Installation.Delimiter)
	if err != nil {
		return model.LoadSpec{}, err
	}
	postalDelim, err := config.Delimiter(cfg.Installation.PostalDelimiter)
	if err != nil {
		return model.LoadSpec{}, err
	}

	spec := model.LoadSpec{
		Name: PageInstallations,
		Fact: model.SourceSpec{
			Name:      "solar",
			Path:      cfg.Installation.FactPath,
			Delimiter: delim,
			Schema: model.Schema{
				{Name: ColID, Type: model.TypeString},
				{Name: ColPostalCode, Type: model.TypeString},
				{Name: "mtr_pt_installed_capacity", Type: model.TypeFloat, Nullable: true},
				{Name: ColValidFrom, Type: model.TypeTimestamp},
				{Name: ColValidTo, Type: model.TypeTimestamp, Nullable: true},
				{Name: "mtr_grid_area_id", Type: model.TypeString, Nullable: true},
			},
			NullMarkers: defaultNullMarkers,
		},
		Joins: []model.JoinSpec{
			{
				Source: model.SourceSpec{
					Name:      "postal_area",
					Path:      cfg.Installation.PostalPath,
					Delimiter: postalDelim,
					Schema: model.Schema{
						{Name: "Postnummer", Type: model.TypeString},
						{Name: "Poststed", Type: model.TypeString, Nullable: true},
						{Name: "Latitude", Type: model.TypeFloat, Nullable: true},
						{Name: "Longitude", Type: model.TypeFloat, Nullable: true},
					},
					NullMarkers: []string{"(blank)"},
				},
				LeftKey:  ColPostalCode,
				RightKey: "Postnummer",
				Fields:   map[string]string{"Poststed": ColPostalArea, "Latitude": ColLat, "Longitude": ColLon},
			},
		},
		Select: []model.Projection{
			{From: ColID, To: ColID},
			{From: ColPostalCode, To: ColPostalCode},
			{From: ColPostalArea, To: ColPostalArea},
			{From: ColLat, To: ColLat},
			{From: ColLon, To: ColLon},
			{From: "mtr_pt_installed_capacity", To: ColCapacity},
			{From: ColValidFrom, To: ColValidFrom},
			{From: ColValidTo, To: ColValidTo},
		},
		Timestamps: []string{ColValidFrom, ColValidTo},
		Calendar:   []model.CalendarSpec{{Source: ColValidFrom, Year: ColYear, Month: ColMonth}},
		Zone:       cfg.Timezone,
	}

	if cfg.Installation.GridPath != "" {
		spec.Joins = append(spec.Joins, model.JoinSpec{
			Source: model.SourceSpec{
				Name:      "grid_area",
				Path:      cfg.Installation.GridPath,
				Delimiter: delim,
				Schema: model.Schema{
					{Name: "udc_id", Type: model.TypeString},
					{Name: "name", Type: model.TypeString},
				},
			},
			LeftKey:  "mtr_grid_area_id",
			RightKey: "udc_id",
			Fields:   map[string]string{"name": ColGridArea},
		})
		spec.Select = append(spec.Select, model.Projection{From: ColGridArea, To: ColGridArea})
	}
	return spec, nil
}

// ------------------- Views -------------------

// BuildCatalog lists the groups, process codes and states of a joined
// market-process table in first-seen order.
func BuildCatalog(t *model.Table) model.Catalog {
	c := model.Catalog{
		Groups:      stringValues(t.Distinct(ColGroup)),
		Options:     stringValues(t.Distinct(ColBRS)),
		Statuses:    stringValues(t.Distinct(ColState)),
		OptionGroup: make(map[string]string),
	}
	for _, rec := range t.Records {
		brs, ok1 := rec[ColBRS].(string)
		group, ok2 := rec[ColGroup].(string)
		if !ok1 || !ok2 {
			continue
		}
		if _, seen := c.OptionGroup[brs]; !seen {
			c.OptionGroup[brs] = group
		}
	}
	return c
}

// MarketProcessChart sums process counts per month for the selected options
// and status, one column per year in the data. Months without processes are
// absent, not zero.
func MarketProcessChart(t *model.Table, sel model.SelectionState) (*model.WideTable, error) {
	if err := selection.Validate(sel); err != nil {
		return nil, err
	}

	long, err := AggregateLong(t, []string{ColYear, ColMonth, ColBRS, ColState}, ColCount,
		WithPeriodFill(ColYear, ColMonth))
	if err != nil {
		return nil, err
	}
	// pivot before filtering so every year of the data stays a column
	wide, err := PivotByYear(long, []string{ColMonth, ColBRS, ColState}, ColYear)
	if err != nil {
		return nil, err
	}

	options := make(map[string]bool, len(sel.SelectedOptions))
	for _, o := range sel.SelectedOptions {
		options[o] = true
	}
	wide = FilterWide(wide, func(key map[string]interface{}) bool {
		brs, _ := key[ColBRS].(string)
		state, _ := key[ColState].(string)
		return options[brs] && state == sel.Status
	})

	wide, err = RegroupWide(wide, []string{ColMonth, ColState})
	if err != nil {
		return nil, err
	}
	return ZeroToAbsent(wide), nil
}

// InstallationOptions tunes the installation overview
type InstallationOptions struct {
	FromYear        int
	CapacityDivisor float64
}

// BuildInstallationOverview computes every installation aggregate from a joined
// installation table. Zero stays zero here.
func BuildInstallationOverview(t *model.Table, opts InstallationOptions) (*model.InstallationOverview, error) {
	openedUnits, err := CountByMonth(t, ColValidFrom, "")
	if err != nil {
		return nil, err
	}
	closedUnits, err := CountByMonth(t, ColValidTo, "")
	if err != nil {
		return nil, err
	}
	// capacity is summed, not counted; see CountByMonth
	openedCap, err := CountByMonth(t, ColValidFrom, ColCapacity)
	if err != nil {
		return nil, err
	}
	closedCap, err := CountByMonth(t, ColValidTo, ColCapacity)
	if err != nil {
		return nil, err
	}

	units := TrimLeadingYears(RunningTotals("units", openedUnits, closedUnits), opts.FromYear)
	capacity := TrimLeadingYears(RunningTotals(ColCapacity, openedCap, closedCap), opts.FromYear)
	capacity = ScaleCapacity(capacity, opts.CapacityDivisor)

	overview := &model.InstallationOverview{
		Units:          units,
		Capacity:       capacity,
		UnitsByYear:    YearlyTotals(units),
		CapacityByYear: YearlyTotals(capacity),
		UnitsByMonth:   PivotMonthlyByYear(units),
		Points:         GeoPoints(t),
	}

	if t.HasColumn(ColGridArea) {
		active := &model.Table{Name: t.Name, Columns: t.Columns}
		for _, rec := range t.Records {
			if rec[ColValidTo] == nil {
				active.Records = append(active.Records, rec)
			}
		}
		if overview.ByGridArea, err = AggregateLong(active, []string{ColGridArea}, ""); err != nil {
			return nil, err
		}
	}

	fmt.Printf("📊 Installation overview: %d months, %d map points\n", len(units.Periods), len(overview.Points))
	return overview, nil
}

// GeoPoints places every installation with known coordinates.
func GeoPoints(t *model.Table) []model.GeoPoint {
	points := make([]model.GeoPoint, 0, t.Len())
	for _, rec := range t.Records {
		lat, ok1 := utils.Numeric(rec[ColLat])
		lon, ok2 := utils.Numeric(rec[ColLon])
		if !ok1 || !ok2 {
			continue
		}
		code, _ := rec[ColPostalCode].(string)
		points = append(points, model.GeoPoint{Lat: lat, Lon: lon, PostalCode: code})
	}
	return points
}

// ------------------- Dashboard -------------------

var errNotLoaded = errors.New("not loaded")

// pageState is one loaded page, or the error that kept it from loading.
type pageState struct {
	table *model.JoinedTable
	run   model.LoadRun
	err   error
}

// Dashboard owns the loaded pages and serves their views. Loaded tables are
// shared read-only between sessions. Pages load independently: a page that
// fails to load reports a PageError while the others keep serving.
type Dashboard struct {
	cfg    config.Config
	loader *Loader
	opts   model.LoadOptions

	mu            sync.RWMutex
	market        pageState
	catalog       model.Catalog
	installations pageState
}

// NewDashboard creates a dashboard; call Refresh before serving views.
func NewDashboard(cfg config.Config, loader *Loader) *Dashboard {
	if loader == nil {
		loader = NewLoader(NewMemoryCache())
	}
	return &Dashboard{
		cfg:    cfg,
		loader: loader,
		opts:   model.LoadOptions{Strict: cfg.Strict, CountDropped: cfg.CountDropped},
	}
}

// Refresh (re)loads every page. The returned error lists the pages that failed;
// the rest are loaded regardless.
func (d *Dashboard) Refresh(ctx context.Context) error {
	start := time.Now()
	fmt.Println("🚀 Refreshing dashboard data...")

	var result *multierror.Error
	for _, name := range []string{PageMarketProcesses, PageInstallations} {
		if err := d.RefreshPage(ctx, name); err != nil {
			fmt.Printf("❌ %v\n", err)
			result = multierror.Append(result, err)
		}
	}

	fmt.Printf("✅ Dashboard refreshed in %v\n", time.Since(start))
	return result.ErrorOrNil()
}

// RefreshPage (re)loads one page. Unchanged inputs come from the loader cache
// and keep their load run. A failure clears the page and is returned as a
// *PageError.
func (d *Dashboard) RefreshPage(ctx context.Context, name string) error {
	var spec model.LoadSpec
	var err error
	switch name {
	case PageMarketProcesses:
		spec, err = MarketProcessSpec(d.cfg)
	case PageInstallations:
		spec, err = InstallationSpec(d.cfg)
	default:
		return fmt.Errorf("unknown page %q", name)
	}

	var jt *model.JoinedTable
	if err == nil {
		jt, err = d.loader.Load(ctx, spec, d.opts)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.page(name)
	if err != nil {
		*p = pageState{err: &PageError{Page: name, Err: err}}
		if name == PageMarketProcesses {
			d.catalog = model.Catalog{}
		}
		return p.err
	}

	if p.table == nil || p.table.ContentHash != jt.ContentHash {
		*p = pageState{table: jt, run: RecordLoad(name, jt)}
		if name == PageMarketProcesses {
			d.catalog = BuildCatalog(jt.Table)
		}
	}
	return nil
}

// page returns the state of a known page; callers hold d.mu.
func (d *Dashboard) page(name string) *pageState {
	if name == PageMarketProcesses {
		return &d.market
	}
	return &d.installations
}

// Available reports whether a page can serve views: nil when it is loaded,
// a *PageError otherwise.
func (d *Dashboard) Available(name string) error {
	if name != PageMarketProcesses && name != PageInstallations {
		return fmt.Errorf("unknown page %q", name)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	p := d.page(name)
	switch {
	case p.err != nil:
		return p.err
	case p.table == nil:
		return &PageError{Page: name, Err: errNotLoaded}
	}
	return nil
}

// MarketProcesses returns the joined market-process table and its load run.
func (d *Dashboard) MarketProcesses() (*model.JoinedTable, model.LoadRun) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.market.table, d.market.run
}

// Installations returns the joined installation table and its load run.
func (d *Dashboard) Installations() (*model.JoinedTable, model.LoadRun) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.installations.table, d.installations.run
}

// Catalog returns the market-process choices.
func (d *Dashboard) Catalog() model.Catalog {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.catalog
}

// NewSelection builds the initial selection of a session.
func (d *Dashboard) NewSelection() model.SelectionState {
	return selection.New(d.Catalog(), d.cfg.Market.ExcludedGroups, d.cfg.Market.DefaultStatus)
}

// MarketProcessChart renders the chart of a selection.
func (d *Dashboard) MarketProcessChart(sel model.SelectionState) (*model.WideTable, error) {
	if err := d.Available(PageMarketProcesses); err != nil {
		return nil, err
	}
	market, _ := d.MarketProcesses()
	return MarketProcessChart(market.Table, sel)
}

// InstallationOverview renders the installation page.
func (d *Dashboard) InstallationOverview() (*model.InstallationOverview, error) {
	if err := d.Available(PageInstallations); err != nil {
		return nil, err
	}
	installations, _ := d.Installations()
	return BuildInstallationOverview(installations.Table, InstallationOptions{
		FromYear:        d.cfg.Installation.FromYear,
		CapacityDivisor: d.cfg.Installation.CapacityDivisor,
	})
}

func stringValues(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, model.KeyString(v))
	}
	return out
}
