//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"syscall/js"

	"github.com/hack-pad/hackpadfs/indexeddb"
	"github.com/rs/zerolog"

	"github.com/weppcloud/gldash/internal/config"
	"github.com/weppcloud/gldash/internal/dashboard"
	"github.com/weppcloud/gldash/internal/logx"
	"github.com/weppcloud/gldash/internal/store"
	"github.com/weppcloud/gldash/pkg/geo"
	"github.com/weppcloud/gldash/pkg/mapctl"
	"github.com/weppcloud/gldash/pkg/resource"
	"github.com/weppcloud/gldash/pkg/sab"
)

// Version info
const Version = "0.1.0"

// Global state
var (
	dash   *dashboard.Dashboard
	hover  *dashboard.Highlighter
	host   js.Value
	shared *sab.SharedBuffer
	log    zerolog.Logger
)

func main() {
	log = logx.NewConsole(config.DefaultLogLevel, os.Stdout)
	println("[glDashboard] WASM Ready v" + Version)

	js.Global().Set("glDashboardVersion", js.FuncOf(getVersion))
	js.Global().Set("glDashboardInit", js.FuncOf(initialize))

	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize builds the dashboard and registers the remaining globals.
// Args: [configJSON, host] where host provides createDeck(props, callbacks)
// and optionally onStatus(msg) and styleBuffer (a SharedArrayBuffer).
func initialize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("glDashboardInit requires (configJSON, host)")
	}
	if dash != nil {
		return errorResult("already initialized")
	}
	cfgJSON := args[0].String()
	host = args[1]

	return promise(func() (any, error) {
		cfg, err := config.Parse([]byte(cfgJSON))
		if err != nil {
			return nil, err
		}
		log = logx.NewConsole(cfg.Log.Level, os.Stdout)

		backend := cfg.QueryEngine.Cache
		if backend == config.CacheSQLite {
			// the SQLite driver needs a native runtime
			log.Info().Msg("sqlite cache unavailable in the browser, using memory")
			backend = config.CacheMemory
		}
		cache, err := store.Open(backend)
		if err != nil {
			return nil, err
		}

		source, err := newSource(cfg)
		if err != nil {
			return nil, err
		}
		if sb := host.Get("styleBuffer"); sb.Truthy() {
			shared = sab.New(sb)
		}

		dash, err = dashboard.New(dashboard.Options{
			Config:    cfg,
			Source:    source,
			Cache:     cache,
			Deck:      newDeck,
			Callbacks: callbacks(),
			Status:    status,
			Logger:    log,
		})
		if err != nil {
			return nil, err
		}
		hover = dash.NewHighlighter()
		for name, h := range dash.Bindings() {
			js.Global().Set(name, js.FuncOf(bind(h)))
		}
		if err := dash.Init(context.Background()); err != nil {
			return nil, err
		}
		return dash.Store().Get(), nil
	})
}

// newSource caches run resources in IndexedDB, one database per run.
func newSource(cfg *config.Config) (resource.Source, error) {
	origin := resource.NewHTTPSource(cfg.Resources.BaseURL, nil)
	fs, err := indexeddb.NewFS(context.Background(), "gldash-"+cfg.QueryEngine.RunID, indexeddb.Options{})
	if err != nil {
		log.Warn().Err(err).Msg("indexeddb unavailable, resources are not cached")
		return origin, nil
	}
	return &resource.CachedSource{Source: origin, Cache: fs, Log: logx.Component(log, "resource")}, nil
}

func status(msg string) {
	if fn := host.Get("onStatus"); fn.Type() == js.TypeFunction {
		fn.Invoke(msg)
		return
	}
	println("[glDashboard] " + msg)
}

// bind adapts a dashboard handler to a JS function returning a Promise.
func bind(h dashboard.Handler) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		goArgs := make([]any, len(args))
		for i, a := range args {
			goArgs[i] = fromJS(a)
		}
		return promise(func() (any, error) {
			return h(context.Background(), goArgs)
		})
	}
}

func fromJS(v js.Value) any {
	switch v.Type() {
	case js.TypeString:
		return v.String()
	case js.TypeBoolean:
		return v.Bool()
	case js.TypeNumber:
		return v.Float()
	case js.TypeUndefined, js.TypeNull:
		return nil
	}
	return v.String()
}

// promise runs fn off the event loop, since network calls block, and
// resolves with its JSON result or an error result. A panic rejects.
func promise(fn func() (any, error)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("dashboard call failed")
					reject.Invoke(js.Global().Get("Error").New(fmt.Sprint(r)))
				}
			}()
			v, err := fn()
			if err != nil {
				resolve.Invoke(errorResult(err.Error()))
				return
			}
			if s, ok := v.(string); ok {
				resolve.Invoke(s)
				return
			}
			out, err := json.Marshal(v)
			if err != nil {
				resolve.Invoke(errorResult("encode result: " + err.Error()))
				return
			}
			resolve.Invoke(string(out))
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// ===== Map deck =====

// jsDeck forwards props to the deck created by the host page. Accessor
// results travel as binary layer styles next to the JSON props.
type jsDeck struct {
	deck js.Value
}

func newDeck(p mapctl.Props) (mapctl.Deck, error) {
	fn := host.Get("createDeck")
	if fn.Type() != js.TypeFunction {
		return nil, fmt.Errorf("host has no createDeck function")
	}
	props, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var cbs js.Value
	if p.Callbacks != nil {
		cbs = jsCallbacks(*p.Callbacks)
	}
	return &jsDeck{deck: fn.Invoke(string(props), cbs)}, nil
}

func (d *jsDeck) SetProps(p mapctl.Props) {
	props, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Msg("encode deck props")
		return
	}
	if p.Layers == nil {
		d.deck.Call("setProps", string(props))
		return
	}

	payload := sab.EncodeLayerStyles(sab.StylesFor(p.Layers, features()))
	if shared != nil {
		if err := shared.WriteMessage(sab.MsgTypeLayerStyles, payload); err == nil {
			d.deck.Call("setProps", string(props), js.Null())
			return
		}
		log.Debug().Int("bytes", len(payload)).Msg("layer styles exceed shared buffer, copying")
	}
	d.deck.Call("setProps", string(props), sab.ToUint8Array(payload))
}

func features() []geo.Feature {
	if dash == nil {
		return nil
	}
	if sc := dash.Store().Get().Subcatchments; sc != nil {
		return sc.Features
	}
	return nil
}

// callbacks wires deck events back into the dashboard.
func callbacks() mapctl.Callbacks {
	return mapctl.Callbacks{
		OnHover: func(info any) {
			if hover == nil {
				return
			}
			hover.Hover(hoveredID(info.(js.Value)))
		},
		GetTooltip: func(info any) any {
			if id := hoveredID(info.(js.Value)); id != "" {
				return "Topaz ID: " + id
			}
			return nil
		},
		OnError: func(err error) {
			log.Warn().Err(err).Msg("deck error")
		},
		OnViewStateChange: func(vs mapctl.ViewState) {
			log.Debug().Float64("zoom", vs.Zoom).Msg("view state changed")
		},
	}
}

// hoveredID reads the topaz id from info.object.properties under the key
// resolved when the subcatchments were loaded.
func hoveredID(info js.Value) string {
	if dash == nil || !info.Truthy() {
		return ""
	}
	obj := info.Get("object")
	if !obj.Truthy() {
		return ""
	}
	props := obj.Get("properties")
	if !props.Truthy() {
		return ""
	}
	return dash.Store().Get().Subcatchments.IDFrom(func(key string) any {
		return fromJS(props.Get(key))
	})
}

func jsCallbacks(cb mapctl.Callbacks) js.Value {
	return js.ValueOf(map[string]interface{}{
		"onHover": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if cb.OnHover != nil && len(args) > 0 {
				cb.OnHover(args[0])
			}
			return nil
		}),
		"getTooltip": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if cb.GetTooltip == nil || len(args) == 0 {
				return nil
			}
			if tip, ok := cb.GetTooltip(args[0]).(string); ok {
				return tip
			}
			return nil
		}),
		"onError": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if cb.OnError != nil && len(args) > 0 {
				cb.OnError(js.Error{Value: args[0]})
			}
			return nil
		}),
		"onViewStateChange": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if cb.OnViewStateChange == nil || len(args) == 0 {
				return nil
			}
			var vs mapctl.ViewState
			raw := js.Global().Get("JSON").Call("stringify", args[0].Get("viewState")).String()
			if err := json.Unmarshal([]byte(raw), &vs); err == nil {
				cb.OnViewStateChange(vs)
			}
			return nil
		}),
	})
}
