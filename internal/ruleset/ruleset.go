package ruleset

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
)

type HandModifier string

const (
	HandRandom HandModifier = "Random"
	HandSwap   HandModifier = "Swap"
)

type PickModifier string

const (
	PickChaos PickModifier = "Chaos"
	PickOrder PickModifier = "Order"
)

type VisibilityModifier string

const (
	VisibilityAllOpen   VisibilityModifier = "AllOpen"
	VisibilityThreeOpen VisibilityModifier = "ThreeOpen"
)

type BorderModifier string

const (
	BorderWrap BorderModifier = "Wrap"
)

type CaptureModifier string

const (
	CaptureReverse   CaptureModifier = "Reverse"
	CaptureFallenAce CaptureModifier = "FallenAce"
	CaptureSame      CaptureModifier = "Same"
	CapturePlus      CaptureModifier = "Plus"
	CaptureCombo     CaptureModifier = "Combo"
)

// Ruleset is a bundle of gameplay modifiers handed to a worker node.
// The coordinator never interprets it.
type Ruleset struct {
	Name               string             `json:"name"`
	BoardWidth         int                `json:"boardWidth"`
	BoardHeight        int                `json:"boardHeight"`
	HandSize           int                `json:"handSize"`
	HandModifier       HandModifier       `json:"handModifier,omitempty"`
	BorderModifier     BorderModifier     `json:"borderModifier,omitempty"`
	VisibilityModifier VisibilityModifier `json:"visibilityModifier,omitempty"`
	PickModifier       PickModifier       `json:"pickModifier,omitempty"`
	CaptureModifiers   []CaptureModifier  `json:"captureModifiers"`
}

// Any is the selector that picks a random preset for every game.
const Any = "any"

// Standard returns the base 3x3 ruleset without modifiers.
func Standard() Ruleset {
	return Ruleset{
		Name:             "standard",
		BoardWidth:       3,
		BoardHeight:      3,
		HandSize:         5,
		CaptureModifiers: []CaptureModifier{},
	}
}

var presets = map[string]func(*Ruleset){
	"standard":   func(*Ruleset) {},
	"random":     func(r *Ruleset) { r.HandModifier = HandRandom },
	"swap":       func(r *Ruleset) { r.HandModifier = HandSwap },
	"chaos":      func(r *Ruleset) { r.PickModifier = PickChaos },
	"order":      func(r *Ruleset) { r.PickModifier = PickOrder },
	"all-open":   func(r *Ruleset) { r.VisibilityModifier = VisibilityAllOpen },
	"three-open": func(r *Ruleset) { r.VisibilityModifier = VisibilityThreeOpen },
	"wrap":       func(r *Ruleset) { r.BorderModifier = BorderWrap },
	"same":       captures(CaptureSame),
	"plus":       captures(CapturePlus),
	"combo":      captures(CaptureCombo),
	"combo-plus": captures(CapturePlus, CaptureCombo),
	"combo-same": captures(CaptureSame, CaptureCombo),
	"reverse":    captures(CaptureReverse),
	"fallen-ace": captures(CaptureFallenAce),
}

func captures(mods ...CaptureModifier) func(*Ruleset) {
	return func(r *Ruleset) {
		r.CaptureModifiers = slices.Clone(mods)
	}
}

// Names lists the available presets in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a fresh copy of the named preset.
func Preset(name string) (Ruleset, error) {
	apply, ok := presets[name]
	if !ok {
		return Ruleset{}, fmt.Errorf("unknown ruleset %q", name)
	}
	r := Standard()
	r.Name = name
	apply(&r)
	return r, nil
}

// Selector yields the ruleset used for each new game.
type Selector func() Ruleset

// NewSelector returns a selector for a preset name or for Any.
func NewSelector(name string) (Selector, error) {
	if name == Any {
		names := Names()
		return func() Ruleset {
			r, _ := Preset(names[rand.IntN(len(names))])
			return r
		}, nil
	}

	r, err := Preset(name)
	if err != nil {
		return nil, err
	}
	return func() Ruleset {
		out := r
		out.CaptureModifiers = slices.Clone(r.CaptureModifiers)
		return out
	}, nil
}
