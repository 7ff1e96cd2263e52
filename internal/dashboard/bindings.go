package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrArgs is returned by a handler called with missing or mistyped arguments.
var ErrArgs = errors.New("dashboard: bad arguments")

// Handler is one façade function. Arguments arrive already converted from
// the host: strings, bools and float64 numbers.
type Handler func(ctx context.Context, args []any) (any, error)

// Bindings returns the façade table, keyed by the global name each handler
// is registered under.
func (d *Dashboard) Bindings() map[string]Handler {
	return map[string]Handler{
		"glDashboardSetScenario": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			d.SetScenario(ctx, path)
			return path, nil
		},
		"glDashboardSetComparisonMode": func(ctx context.Context, args []any) (any, error) {
			on, err := boolArg(args, 0)
			if err != nil {
				return nil, err
			}
			d.SetComparisonMode(ctx, on)
			return on, nil
		},
		"glDashboardSetBasemap": func(_ context.Context, args []any) (any, error) {
			key, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			return key, d.SetBasemap(key)
		},
		"glDashboardToggleLabels": func(context.Context, []any) (any, error) {
			return d.ToggleLabels(), nil
		},
		"glDashboardSetGraphMode": func(_ context.Context, args []any) (any, error) {
			mode, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			return string(d.SetGraphMode(mode)), nil
		},
		"glDashboardToggleGraphCollapse": func(context.Context, []any) (any, error) {
			return string(d.ToggleGraphCollapse()), nil
		},
		"glDashboardSetGraphFocus": func(_ context.Context, args []any) (any, error) {
			focus, err := boolArg(args, 0)
			if err != nil {
				return nil, err
			}
			return d.SetGraphFocus(focus), nil
		},
		"glDashboardHighlightSubcatchment": func(_ context.Context, args []any) (any, error) {
			id, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			d.HighlightSubcatchment(id)
			return id, nil
		},
		"glDashboardUpdateLegends": func(context.Context, []any) (any, error) {
			return d.UpdateLegends()
		},
		"glDashboardSetLayerVisible": func(ctx context.Context, args []any) (any, error) {
			key, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			visible, err := boolArg(args, 1)
			if err != nil {
				return nil, err
			}
			return visible, d.SetLayerVisible(ctx, key, visible)
		},
		"glDashboardSetWeppStatistic": func(ctx context.Context, args []any) (any, error) {
			stat, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			d.SetWeppStatistic(ctx, stat)
			return stat, nil
		},
		"glDashboardSetWeppYear": func(ctx context.Context, args []any) (any, error) {
			year, err := intArg(args, 0)
			if err != nil {
				return nil, err
			}
			return d.SetWeppYear(ctx, year), nil
		},
		"glDashboardSetEventDate": func(ctx context.Context, args []any) (any, error) {
			date, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			return d.SetEventDate(ctx, date), nil
		},
		"glDashboardSetRapYear": func(ctx context.Context, args []any) (any, error) {
			year, err := intArg(args, 0)
			if err != nil {
				return nil, err
			}
			return d.SetRapYear(ctx, year)
		},
		"glDashboardLoadGraph": func(ctx context.Context, args []any) (any, error) {
			key, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			force := false
			if len(args) > 1 {
				if force, err = boolArg(args, 1); err != nil {
					return nil, err
				}
			}
			return d.LoadGraph(ctx, key, force)
		},
		"glDashboardGraphView": func(context.Context, []any) (any, error) {
			return d.GraphView(), nil
		},
		"glDashboardGraphSVG": func(context.Context, []any) (any, error) {
			return d.GraphSVG()
		},
		"glDashboardSetValue": func(ctx context.Context, args []any) (any, error) {
			key, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			value, err := arg(args, 1)
			if err != nil {
				return nil, err
			}
			if err := d.SetValue(ctx, key, value); err != nil {
				return nil, err
			}
			return d.store.Version(), nil
		},
		"glDashboardLayers": func(context.Context, []any) (any, error) {
			return d.Layers(), nil
		},
		"glDashboardState": func(context.Context, []any) (any, error) {
			return d.store.Get(), nil
		},
		"glDashboardReload": func(ctx context.Context, _ []any) (any, error) {
			d.Reload(ctx)
			return true, nil
		},
	}
}

func arg(args []any, i int) (any, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%w: want at least %d", ErrArgs, i+1)
	}
	return args[i], nil
}

func stringArg(args []any, i int) (string, error) {
	v, err := arg(args, i)
	if err != nil {
		return "", err
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%w: argument %d is %T, want string", ErrArgs, i, v)
}

func boolArg(args []any, i int) (bool, error) {
	v, err := arg(args, i)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: argument %d is %T, want bool", ErrArgs, i, v)
	}
	return b, nil
}

func intArg(args []any, i int) (int, error) {
	v, err := arg(args, i)
	if err != nil {
		return 0, err
	}
	switch v := v.(type) {
	case int:
		return v, nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	case string:
		var n int
		if _, err := fmt.Sscan(v, &n); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: argument %d is %v, want integer", ErrArgs, i, v)
}
