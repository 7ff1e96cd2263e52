// Package mapctl wraps the map/deck instance the layer stack is drawn on.
package mapctl

import (
	"errors"
	"fmt"
	"sync"

	"github.com/weppcloud/gldash/pkg/layers"
)

// ViewState is the camera.
type ViewState struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Bearing   float64 `json:"bearing"`
}

// Callbacks are handed to the deck as is. Payloads are the host's.
type Callbacks struct {
	OnHover           func(info any)
	GetTooltip        func(info any) any
	OnError           func(err error)
	OnViewStateChange func(vs ViewState)
}

// Props is one property update. Nil fields are left unchanged; an empty
// non-nil Layers clears the map.
type Props struct {
	Layers     []layers.Layer `json:"layers"`
	ViewState  *ViewState     `json:"viewState,omitempty"`
	Controller map[string]any `json:"controller,omitempty"`
	Callbacks  *Callbacks     `json:"-"`
}

// Deck is the rendering instance.
type Deck interface {
	SetProps(Props)
}

// Factory constructs a Deck from its initial props.
type Factory func(Props) (Deck, error)

// Controller owns one Deck.
type Controller struct {
	mu   sync.Mutex
	deck Deck
}

// New constructs the deck once.
func New(factory Factory, initial ViewState, options map[string]any, callbacks Callbacks) (*Controller, error) {
	if factory == nil {
		return nil, errors.New("mapctl: nil factory")
	}
	vs := initial
	deck, err := factory(Props{ViewState: &vs, Controller: options, Callbacks: &callbacks})
	if err != nil {
		return nil, fmt.Errorf("mapctl: create deck: %w", err)
	}
	return &Controller{deck: deck}, nil
}

// ApplyLayers replaces the whole layer stack.
func (c *Controller) ApplyLayers(stack []layers.Layer) {
	if stack == nil {
		stack = []layers.Layer{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deck.SetProps(Props{Layers: stack})
}

// SetViewState moves the camera.
func (c *Controller) SetViewState(vs ViewState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deck.SetProps(Props{ViewState: &vs})
}
