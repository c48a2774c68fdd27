package model

import "time"

// ColumnType is the declared type of a source column
type ColumnType string

const (
	TypeString    ColumnType = "string"
	TypeInt       ColumnType = "int"        // int64, nullable
	TypeFloat     ColumnType = "float"      // float64, nullable
	TypeMonthYear ColumnType = "month_year" // "Jan-21"
	TypeTimestamp ColumnType = "timestamp"  // time.Time, stored UTC on disk
)

// MonthYearLayout is the fixed layout of usage_date values
const MonthYearLayout = "Jan-06"

// Column declares one expected column of a source
type Column struct {
	Name     string     `json:"name" mapstructure:"name"`
	Type     ColumnType `json:"type" mapstructure:"type"`
	Nullable bool       `json:"nullable" mapstructure:"nullable"`
}

// Schema is the ordered list of columns a source must provide
type Schema []Column

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Lookup finds a declared column by name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// SourceSpec describes one delimited input file
type SourceSpec struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Delimiter   rune     `json:"delimiter"`
	Schema      Schema   `json:"schema"`
	NullMarkers []string `json:"nullMarkers,omitempty"` // values read as null in addition to ""
}

// JoinSpec is one inner join step: fact.LeftKey = dimension.RightKey
type JoinSpec struct {
	Source   SourceSpec        `json:"source"`
	LeftKey  string            `json:"leftKey"`
	RightKey string            `json:"rightKey"`
	Fields   map[string]string `json:"fields,omitempty"` // dimension column -> output column
}

// Projection renames a column of the joined table
type Projection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CalendarSpec derives year/month columns from a date-like column
type CalendarSpec struct {
	Source string `json:"source"`
	Year   string `json:"year"`
	Month  string `json:"month"`
}

// LoadSpec defines the complete load of one page: fact table joined with
// an ordered sequence of dimension tables.
type LoadSpec struct {
	Name       string         `json:"name"`
	Fact       SourceSpec     `json:"fact"`
	Joins      []JoinSpec     `json:"joins"`
	Select     []Projection   `json:"select,omitempty"` // empty keeps every column
	Timestamps []string       `json:"timestamps,omitempty"`
	Calendar   []CalendarSpec `json:"calendar,omitempty"`
	Zone       string         `json:"zone"` // IANA name, e.g. Europe/Oslo
}

// LoadOptions tunes loader behavior
type LoadOptions struct {
	Strict       bool `json:"strict"`       // abort on the first ParseError instead of quarantining
	CountDropped bool `json:"countDropped"` // report rows dropped by each inner join
}

// LoadRun is the persisted summary of one load
type LoadRun struct {
	ID          string         `json:"id"`
	Page        string         `json:"page"`
	ContentHash string         `json:"content_hash"`
	FactRows    int            `json:"fact_rows"`
	JoinedRows  int            `json:"joined_rows"`
	Quarantined int            `json:"quarantined"`
	Dropped     map[string]int `json:"dropped,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
