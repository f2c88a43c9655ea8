package server

import (
	"database/sql"
	"strings"

	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/schema"
)

// Text columns of the stations table, after id.
var textColumns = []string{
	"railway_operator",
	"station_name",
	"line_name",
	"prefecture",
	"city",
}

// Integer columns of the stations table. Flags are stored as 0/1.
var intColumns = []string{
	"step_response_status",
	"num_platforms",
	"num_step_free_platforms",
	"num_elevators",
	"num_compliant_elevators",
	"num_escalators",
	"num_compliant_escalators",
	"num_other_lifts",
	"num_slopes",
	"num_compliant_slopes",
	"has_tactile_paving",
	"has_guidance_system",
	"has_accessible_restroom",
	"has_accessible_gate",
	"has_accessible_ticket_machine",
	"num_wheelchair_accessible_platforms",
	"has_fall_prevention",
}

// stationColumns lists every column in import order.
var stationColumns = append(append([]string{"id"}, textColumns...), intColumns...)

// StationRow is one row of the stations table. Unknown readings are NULL.
type StationRow struct {
	ID              int64          `db:"id"`
	RailwayOperator sql.NullString `db:"railway_operator"`
	StationName     sql.NullString `db:"station_name"`
	LineName        sql.NullString `db:"line_name"`
	Prefecture      sql.NullString `db:"prefecture"`
	City            sql.NullString `db:"city"`

	StepResponseStatus               sql.NullInt64 `db:"step_response_status"`
	NumPlatforms                     sql.NullInt64 `db:"num_platforms"`
	NumStepFreePlatforms             sql.NullInt64 `db:"num_step_free_platforms"`
	NumElevators                     sql.NullInt64 `db:"num_elevators"`
	NumCompliantElevators            sql.NullInt64 `db:"num_compliant_elevators"`
	NumEscalators                    sql.NullInt64 `db:"num_escalators"`
	NumCompliantEscalators           sql.NullInt64 `db:"num_compliant_escalators"`
	NumOtherLifts                    sql.NullInt64 `db:"num_other_lifts"`
	NumSlopes                        sql.NullInt64 `db:"num_slopes"`
	NumCompliantSlopes               sql.NullInt64 `db:"num_compliant_slopes"`
	HasTactilePaving                 sql.NullInt64 `db:"has_tactile_paving"`
	HasGuidanceSystem                sql.NullInt64 `db:"has_guidance_system"`
	HasAccessibleRestroom            sql.NullInt64 `db:"has_accessible_restroom"`
	HasAccessibleGate                sql.NullInt64 `db:"has_accessible_gate"`
	HasAccessibleTicketMachine       sql.NullInt64 `db:"has_accessible_ticket_machine"`
	NumWheelchairAccessiblePlatforms sql.NullInt64 `db:"num_wheelchair_accessible_platforms"`
	HasFallPrevention                sql.NullInt64 `db:"has_fall_prevention"`
}

// intFields maps each integer column to its field so rows can be filled and
// read by column name.
func (r *StationRow) intFields() map[string]*sql.NullInt64 {
	return map[string]*sql.NullInt64{
		"step_response_status":                &r.StepResponseStatus,
		"num_platforms":                       &r.NumPlatforms,
		"num_step_free_platforms":             &r.NumStepFreePlatforms,
		"num_elevators":                       &r.NumElevators,
		"num_compliant_elevators":             &r.NumCompliantElevators,
		"num_escalators":                      &r.NumEscalators,
		"num_compliant_escalators":            &r.NumCompliantEscalators,
		"num_other_lifts":                     &r.NumOtherLifts,
		"num_slopes":                          &r.NumSlopes,
		"num_compliant_slopes":                &r.NumCompliantSlopes,
		"has_tactile_paving":                  &r.HasTactilePaving,
		"has_guidance_system":                 &r.HasGuidanceSystem,
		"has_accessible_restroom":             &r.HasAccessibleRestroom,
		"has_accessible_gate":                 &r.HasAccessibleGate,
		"has_accessible_ticket_machine":       &r.HasAccessibleTicketMachine,
		"num_wheelchair_accessible_platforms": &r.NumWheelchairAccessiblePlatforms,
		"has_fall_prevention":                 &r.HasFallPrevention,
	}
}

func (r *StationRow) textFields() map[string]*sql.NullString {
	return map[string]*sql.NullString{
		"railway_operator": &r.RailwayOperator,
		"station_name":     &r.StationName,
		"line_name":        &r.LineName,
		"prefecture":       &r.Prefecture,
		"city":             &r.City,
	}
}

// reading returns the value of an integer column, unknown when NULL or absent.
func (r *StationRow) reading(column string) schema.RawValue {
	field, ok := r.intFields()[column]
	if !ok || !field.Valid {
		return schema.Unknown()
	}
	return schema.Known(float64(field.Int64))
}

// Observations builds one observation per catalog metric, in catalog order.
func (r *StationRow) Observations(catalog *core.Catalog) []schema.MetricObservation {
	defs := catalog.Definitions()
	observations := make([]schema.MetricObservation, 0, len(defs))
	for _, def := range defs {
		obs := schema.MetricObservation{Key: def.Key}
		if def.Kind == schema.RatioKind {
			obs.Numerator = r.reading(def.Numerator)
			obs.Denominator = r.reading(def.Denominator)
		} else {
			obs.RawValue = r.reading(def.Key)
		}
		observations = append(observations, obs)
	}
	return observations
}

// Summary returns the station identity without a score.
func (r *StationRow) Summary() schema.StationSummary {
	return schema.StationSummary{
		ID:         r.ID,
		Name:       r.StationName.String,
		Prefecture: r.Prefecture.String,
		City:       r.City.String,
		Operator:   r.RailwayOperator.String,
		LineName:   r.LineName.String,
	}
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
