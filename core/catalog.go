package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/barriernavi/schema"
)

// Catalog is the ordered, immutable set of metric definitions for one category.
type Catalog struct {
	category schema.Category
	defs     []schema.MetricDefinition
	index    map[string]int
}

// NewCatalog builds a catalog, rejecting duplicate keys and malformed definitions.
func NewCatalog(category schema.Category, defs []schema.MetricDefinition) (*Catalog, error) {
	c := &Catalog{
		category: category,
		defs:     slices.Clone(defs),
		index:    make(map[string]int, len(defs)),
	}
	for i, def := range c.defs {
		if def.Key == "" {
			return nil, fmt.Errorf("metric %d in %s catalog has an empty key", i, category)
		}
		if _, dup := c.index[def.Key]; dup {
			return nil, fmt.Errorf("duplicate metric key %q in %s catalog", def.Key, category)
		}
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		c.index[def.Key] = i
	}
	return c, nil
}

func validateDefinition(def schema.MetricDefinition) error {
	switch def.Kind {
	case schema.FlagKind:
		if def.Required != 1 {
			return fmt.Errorf("%w: flag metric %s must require 1", schema.ErrInvalidThreshold, def.Key)
		}
	case schema.CountKind:
		if def.Required < 0 {
			return fmt.Errorf("%w: count metric %s must not require a negative value", schema.ErrInvalidThreshold, def.Key)
		}
	case schema.RatioKind:
		if def.Required < 0 || def.Required > 1 {
			return fmt.Errorf("%w: ratio metric %s must require a fraction in [0,1]", schema.ErrInvalidThreshold, def.Key)
		}
		if def.Numerator == "" || def.Denominator == "" {
			return fmt.Errorf("ratio metric %s needs numerator and denominator fields", def.Key)
		}
	default:
		return fmt.Errorf("metric %s has unknown kind %q", def.Key, def.Kind)
	}
	return nil
}

// mustCatalog is used for the built-in catalogs, which are known to be valid.
func mustCatalog(category schema.Category, defs []schema.MetricDefinition) *Catalog {
	c, err := NewCatalog(category, defs)
	if err != nil {
		panic(err)
	}
	return c
}

// Category returns the category this catalog describes.
func (c *Catalog) Category() schema.Category { return c.category }

// Definitions returns a copy of the ordered definitions.
func (c *Catalog) Definitions() []schema.MetricDefinition { return slices.Clone(c.defs) }

// Len returns the number of metrics in the catalog.
func (c *Catalog) Len() int { return len(c.defs) }

// Keys returns metric keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.defs))
	for i, def := range c.defs {
		keys[i] = def.Key
	}
	return keys
}

// Lookup returns the definition for key.
func (c *Catalog) Lookup(key string) (schema.MetricDefinition, bool) {
	i, ok := c.index[key]
	if !ok {
		return schema.MetricDefinition{}, false
	}
	return c.defs[i], true
}

// Has reports whether key belongs to the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.index[key]
	return ok
}

// WithThresholds returns a new catalog whose required values are overridden.
// The receiver is left untouched.
func (c *Catalog) WithThresholds(overrides map[string]float64) (*Catalog, error) {
	if len(overrides) == 0 {
		return c, nil
	}
	defs := c.Definitions()
	for key, required := range overrides {
		i, ok := c.index[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a %s metric", schema.ErrInvalidMetricKey, key, c.category)
		}
		defs[i].Required = required
	}
	return NewCatalog(c.category, defs)
}

// ParseCategory converts user input into a category.
func ParseCategory(s string) (schema.Category, error) {
	category := schema.Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidCategories[category]; !ok {
		return "", fmt.Errorf("%w: %q", schema.ErrUnknownCategory, s)
	}
	return category, nil
}

// CatalogFor returns the built-in catalog for a category.
func CatalogFor(category schema.Category) (*Catalog, error) {
	switch category {
	case schema.BodyCategory:
		return bodyCatalog, nil
	case schema.HearingCategory:
		return hearingCatalog, nil
	case schema.VisionCategory:
		return visionCatalog, nil
	default:
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownCategory, category)
	}
}

// ConfiguredCatalog returns the built-in catalog for category with any
// per-deployment threshold overrides applied.
func ConfiguredCatalog(category schema.Category, thresholds map[schema.Category]map[string]float64) (*Catalog, error) {
	base, err := CatalogFor(category)
	if err != nil {
		return nil, err
	}
	return base.WithThresholds(thresholds[category])
}

func flag(key, label string) schema.MetricDefinition {
	return schema.MetricDefinition{Key: key, Label: label, Kind: schema.FlagKind, Required: 1}
}

func count(key, label string, required float64) schema.MetricDefinition {
	return schema.MetricDefinition{Key: key, Label: label, Kind: schema.CountKind, Required: required}
}

func ratio(key, label string, required float64, numerator, denominator string) schema.MetricDefinition {
	return schema.MetricDefinition{
		Key:         key,
		Label:       label,
		Kind:        schema.RatioKind,
		Required:    required,
		Numerator:   numerator,
		Denominator: denominator,
	}
}

// Shared definitions; the same key carries the same threshold in every category.
var (
	stepResponse      = flag("step_response_status", "段差への対応")
	tactilePaving     = flag("has_tactile_paving", "視覚障害者誘導用ブロックの設置の有無")
	guidanceSystem    = flag("has_guidance_system", "案内設備の設置の有無")
	accessibleToilet  = flag("has_accessible_restroom", "障害者対応型便所の設置の有無")
	accessibleGate    = flag("has_accessible_gate", "障害者対応型改札口の設置の有無")
	fallPrevention    = flag("has_fall_prevention", "転落防止のための設備の設置の有無")
	platformStepFree  = ratio("platform_ratio", "段差が解消されているプラットホームの割合", 0.8, "num_step_free_platforms", "num_platforms")
	elevatorCompliant = ratio("elevator_ratio", "移動等円滑化基準に適合しているエレベーターの割合", 0.8, "num_compliant_elevators", "num_elevators")
	escalatorRatio    = ratio("escalator_ratio", "移動等円滑化基準に適合しているエスカレーターの割合", 0.8, "num_compliant_escalators", "num_escalators")
)

var bodyCatalog = mustCatalog(schema.BodyCategory, []schema.MetricDefinition{
	stepResponse,
	guidanceSystem,
	accessibleToilet,
	accessibleGate,
	fallPrevention,
	platformStepFree,
	elevatorCompliant,
	escalatorRatio,
	count("num_other_lifts", "その他の昇降機の設置基数", 2),
	count("num_slopes", "傾斜路の設置箇所数", 2),
	count("num_compliant_slopes", "移動等円滑化基準に適合している傾斜路の設置箇所数", 2),
	count("num_wheelchair_accessible_platforms", "車いす使用者の円滑な乗降が可能なプラットホームの数", 6),
})

var hearingCatalog = mustCatalog(schema.HearingCategory, []schema.MetricDefinition{
	guidanceSystem,
	accessibleToilet,
	accessibleGate,
	fallPrevention,
})

var visionCatalog = mustCatalog(schema.VisionCategory, []schema.MetricDefinition{
	stepResponse,
	tactilePaving,
	guidanceSystem,
	accessibleToilet,
	accessibleGate,
	fallPrevention,
	platformStepFree,
	count("num_compliant_elevators", "移動等円滑化基準に適合しているエレベーターの設置基数", 4),
	count("num_compliant_escalators", "移動等円滑化基準に適合しているエスカレーターの設置基数", 4),
	count("num_compliant_slopes", "移動等円滑化基準に適合している傾斜路の設置箇所数", 2),
})
