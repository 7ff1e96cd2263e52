package wepp

import (
	"fmt"

	"github.com/weppcloud/gldash/pkg/query"
)

// Statistics accepted by BuildWeppAggregations.
const (
	StatMean = "mean"
	StatP90  = "p90"
	StatSD   = "sd"
	StatCV   = "cv"
)

// IsStatistic reports whether BuildWeppAggregations accepts s.
func IsStatistic(s string) bool {
	switch s {
	case StatMean, StatP90, StatSD, StatCV:
		return true
	}
	return false
}

// Table aliases used in every WEPP payload.
const (
	lossAlias  = "loss"
	hillAlias  = "hill"
	eventAlias = "ev"
)

type column struct {
	name  string
	scale string // 1000 turns m³/m² into mm, 10 turns kg/m² into t/ha
}

var lossColumns = []column{
	{"runoff_volume", "1000"},
	{"subrunoff_volume", "1000"},
	{"baseflow_volume", "1000"},
	{"soil_loss", "10"},
	{"sediment_deposition", "10"},
	{"sediment_yield", "10"},
}

// perArea normalises a per-hillslope total to the hillslope area.
func perArea(table string, c column) string {
	return fmt.Sprintf("%s.%s / %s.area * %s", table, c.name, hillAlias, c.scale)
}

// BuildWeppAggregations returns one aggregation per WEPP measure for
// statistic. Volumes come out in mm, masses in t/ha. An unknown statistic
// is a programming error and panics.
func BuildWeppAggregations(statistic string) []query.Aggregation {
	out := make([]query.Aggregation, 0, len(lossColumns))
	for _, c := range lossColumns {
		x := perArea(lossAlias, c)
		var sql string
		switch statistic {
		case StatMean:
			sql = fmt.Sprintf("AVG(%s)", x)
		case StatP90:
			sql = fmt.Sprintf("QUANTILE_CONT(%s, 0.9)", x)
		case StatSD:
			sql = fmt.Sprintf("STDDEV_SAMP(%s)", x)
		case StatCV:
			sql = fmt.Sprintf("CASE WHEN AVG(%[1]s) = 0 THEN NULL ELSE STDDEV_SAMP(%[1]s) / AVG(%[1]s) * 100 END", x)
		default:
			panic(fmt.Sprintf("wepp: unknown statistic %q", statistic))
		}
		out = append(out, query.Aggregation{SQL: sql, Alias: c.name})
	}
	return out
}

// yearlyAggregations sums one year's rows per subcatchment.
func yearlyAggregations() []query.Aggregation {
	out := make([]query.Aggregation, 0, len(lossColumns))
	for _, c := range lossColumns {
		out = append(out, query.Aggregation{SQL: fmt.Sprintf("SUM(%s)", perArea(lossAlias, c)), Alias: c.name})
	}
	return out
}

// eventAggregations reads the daily hillslope pass table.
func eventAggregations() []query.Aggregation {
	return []query.Aggregation{
		{SQL: fmt.Sprintf("SUM(%s)", perArea(eventAlias, column{"P", "1000"})), Alias: "event_P"},
		{SQL: fmt.Sprintf("SUM(%s)", perArea(eventAlias, column{"runvol", "1000"})), Alias: "event_Q"},
		{SQL: fmt.Sprintf("MAX(%s.peakro)", eventAlias), Alias: "event_peakro"},
		{SQL: fmt.Sprintf("SUM(%s)", perArea(eventAlias, column{"tdet", "10"})), Alias: "event_tdet"},
		{SQL: fmt.Sprintf("SUM(%s)", perArea(eventAlias, column{"tdep", "10"})), Alias: "event_tdep"},
	}
}
