package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"go-elhub-stats/internal/model"
)

// Cache memoizes load results by content hash.
type Cache interface {
	Get(key string) (*model.JoinedTable, bool)
	Put(key string, table *model.JoinedTable)
}

// MemoryCache is a process-wide Cache. Cached tables are shared read-only.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*model.JoinedTable
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*model.JoinedTable)}
}

func (c *MemoryCache) Get(key string) (*model.JoinedTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[key]
	return t, ok
}

func (c *MemoryCache) Put(key string, table *model.JoinedTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = table
}

// Loader reads, joins and derives a page's table. It is a pure function of the
// file contents and the LoadSpec, so results are cached by their content hash.
type Loader struct {
	cache Cache
}

// NewLoader creates a loader; a nil cache disables memoization.
func NewLoader(cache Cache) *Loader {
	return &Loader{cache: cache}
}

// Load runs an uncached load.
func Load(ctx context.Context, spec model.LoadSpec, opts model.LoadOptions) (*model.JoinedTable, error) {
	return NewLoader(nil).Load(ctx, spec, opts)
}

// Load reads the fact table and each dimension in order and inner-joins them.
// The returned table must not be modified: it may be shared through the cache.
func (l *Loader) Load(ctx context.Context, spec model.LoadSpec, opts model.LoadOptions) (*model.JoinedTable, error) {
	start := time.Now()
	fmt.Printf("➡️ Starting load for page: %s\n", spec.Name)

	loc, err := LoadZone(spec.Zone)
	if err != nil {
		return nil, err
	}

	factData, err := readSourceFile(spec.Fact)
	if err != nil {
		return nil, err
	}
	dimData := make([][]byte, len(spec.Joins))
	for i, j := range spec.Joins {
		if dimData[i], err = readSourceFile(j.Source); err != nil {
			return nil, err
		}
	}

	key, err := contentHash(spec, opts, factData, dimData)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		if cached, ok := l.cache.Get(key); ok {
			fmt.Printf("✅ Load cache hit for page: %s\n", spec.Name)
			return cached, nil
		}
	}

	table, quarantine, err := ParseDelimited(ctx, spec.Fact, factData, opts.Strict)
	if err != nil {
		return nil, err
	}
	diag := model.LoadDiagnostics{FactRows: table.Len()}

	for i, j := range spec.Joins {
		dim, dimQuarantine, err := ParseDelimited(ctx, j.Source, dimData[i], opts.Strict)
		if err != nil {
			return nil, err
		}
		if dimQuarantine != nil {
			quarantine = multierror.Append(quarantine, dimQuarantine.Errors...)
		}

		var dropped int
		table, dropped, err = InnerJoin(table, dim, j.LeftKey, j.RightKey, j.Fields)
		if err != nil {
			return nil, fmt.Errorf("join %s with %s: %w", spec.Fact.Name, dim.Name, err)
		}
		if opts.CountDropped {
			if diag.Dropped == nil {
				diag.Dropped = make(map[string]int)
			}
			diag.Dropped[dim.Name] += dropped
		}
	}

	if table, err = Project(table, spec.Select); err != nil {
		return nil, err
	}
	if table, err = ConvertZone(table, spec.Timestamps, loc); err != nil {
		return nil, err
	}
	for _, cal := range spec.Calendar {
		if table, err = DeriveCalendar(table, cal); err != nil {
			return nil, err
		}
	}
	table.Name = spec.Name

	diag.JoinedRows = table.Len()
	diag.Quarantined = quarantinedRows(quarantine)
	diag.Duration = time.Since(start)

	result := &model.JoinedTable{Table: table, ContentHash: key, Diagnostics: diag}
	if l.cache != nil {
		l.cache.Put(key, result)
	}

	fmt.Printf("✅ Finished load for page: %s (%d rows, %d quarantined) in %v\n",
		spec.Name, diag.JoinedRows, len(diag.Quarantined), diag.Duration)
	return result, nil
}

// contentHash fingerprints the LoadSpec, the options and every input file.
func contentHash(spec model.LoadSpec, opts model.LoadOptions, fact []byte, dims [][]byte) (string, error) {
	h := sha256.New()
	meta, err := json.Marshal(struct {
		Spec model.LoadSpec
		Opts model.LoadOptions
	}{spec, opts})
	if err != nil {
		return "", err
	}
	h.Write(meta)
	h.Write(fact)
	for _, d := range dims {
		h.Write([]byte{0})
		h.Write(d)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func quarantinedRows(quarantine *multierror.Error) []model.QuarantinedRow {
	if quarantine == nil {
		return nil
	}
	rows := make([]model.QuarantinedRow, 0, quarantine.Len())
	for _, err := range quarantine.Errors {
		var perr *ParseError
		if !errors.As(err, &perr) {
			continue
		}
		rows = append(rows, model.QuarantinedRow{
			Source:  perr.Source,
			Row:     perr.Row,
			Column:  perr.Column,
			Value:   perr.Value,
			Message: perr.Error(),
		})
	}
	return rows
}
