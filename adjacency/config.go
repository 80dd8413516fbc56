package adjacency

import (
	"fmt"

	"github.com/hupe1980/csrgo/internal/arena"
	"github.com/hupe1980/csrgo/internal/resource"
	"github.com/hupe1980/csrgo/model"
)

// PropertyColumn describes one relationship property.
type PropertyColumn struct {
	Name         string
	Aggregation  model.Aggregation
	DefaultValue float64
}

// Config configures a Factory.
type Config struct {
	// NodeCount is the number of source nodes.
	NodeCount uint64

	// Compression selects the adjacency strategy.
	Compression model.Compression

	// Aggregation applies to relationships without properties and is the
	// fallback for property columns with model.AggregationDefault.
	Aggregation model.Aggregation

	// Properties are the relationship property columns, possibly empty.
	Properties []PropertyColumn

	// PageSize is the page size in bytes. Zero selects arena.DefaultPageSize.
	PageSize int

	// MaxPages limits the number of pages per page list. Zero means unlimited.
	MaxPages int

	// Resources accounts page memory; may be nil.
	Resources *resource.Controller
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Aggregation.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidAggregation, c.Aggregation)
	}
	if c.Compression != model.CompressionDelta && c.Compression != model.CompressionRaw {
		return fmt.Errorf("adjacency: invalid compression %v", c.Compression)
	}
	if c.PageSize < 0 || c.MaxPages < 0 {
		return fmt.Errorf("adjacency: negative page size %d or page limit %d", c.PageSize, c.MaxPages)
	}

	merging, keeping := 0, 0
	for _, agg := range c.aggregations() {
		if !agg.Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidAggregation, agg)
		}
		if agg.Merges() {
			merging++
		} else {
			keeping++
		}
	}
	if merging > 0 && keeping > 0 {
		return ErrMixedAggregation
	}
	return nil
}

// aggregations returns the resolved aggregation of every property column.
func (c *Config) aggregations() []model.Aggregation {
	out := make([]model.Aggregation, len(c.Properties))
	for i, p := range c.Properties {
		agg := p.Aggregation
		if agg == model.AggregationDefault {
			agg = c.Aggregation
		}
		out[i] = agg.Resolve()
	}
	return out
}

// merges reports whether parallel relationships are merged.
func (c *Config) merges() bool {
	if len(c.Properties) == 0 {
		return c.Aggregation.Merges()
	}
	return c.aggregations()[0].Merges()
}

func (c *Config) pageSize() int {
	if c.PageSize == 0 {
		return arena.DefaultPageSize
	}
	return c.PageSize
}

func (c *Config) arenaOptions() []arena.Option {
	var opts []arena.Option
	if c.Resources != nil {
		opts = append(opts, arena.WithMemoryAcquirer(c.Resources))
	}
	if c.MaxPages > 0 {
		opts = append(opts, arena.WithMaxPages(c.MaxPages))
	}
	return opts
}
