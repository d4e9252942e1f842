package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Element is an optional card affinity.
type Element string

const (
	ElementEarth     Element = "Earth"
	ElementFire      Element = "Fire"
	ElementWater     Element = "Water"
	ElementPoison    Element = "Poison"
	ElementHoly      Element = "Holy"
	ElementLightning Element = "Lightning"
	ElementWind      Element = "Wind"
	ElementIce       Element = "Ice"
)

// Values holds the four side values of a card, each between 1 and 10.
type Values struct {
	Top    int `json:"top" validate:"min=1,max=10"`
	Right  int `json:"right" validate:"min=1,max=10"`
	Bottom int `json:"bottom" validate:"min=1,max=10"`
	Left   int `json:"left" validate:"min=1,max=10"`
}

// Card is a single catalog entry.
type Card struct {
	ID      string  `json:"id" validate:"required"`
	Values  Values  `json:"values"`
	Element Element `json:"element,omitempty" validate:"omitempty,oneof=Earth Fire Water Poison Holy Lightning Wind Ice"`
}

// Total is the sum of all four sides.
func (c Card) Total() int {
	return c.Values.Top + c.Values.Right + c.Values.Bottom + c.Values.Left
}

// Catalog is an immutable set of cards.
type Catalog struct {
	cards   []Card
	byTotal map[int][]Card
	totals  []int
}

// ErrEmptyCatalog is returned when drawing from a catalog without cards.
var ErrEmptyCatalog = errors.New("card catalog is empty")

// Load reads and validates a JSON array of cards.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cards %q: %w", path, err)
	}

	var list []Card
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode cards %q: %w", path, err)
	}
	return New(list)
}

// New builds a catalog, rejecting invalid cards.
func New(list []Card) (*Catalog, error) {
	validate := validator.New()
	c := &Catalog{byTotal: make(map[int][]Card)}
	for _, card := range list {
		if err := validate.Struct(card); err != nil {
			return nil, fmt.Errorf("invalid card %q: %w", card.ID, err)
		}
		c.cards = append(c.cards, card)
		total := card.Total()
		if _, ok := c.byTotal[total]; !ok {
			c.totals = append(c.totals, total)
		}
		c.byTotal[total] = append(c.byTotal[total], card)
	}
	sort.Ints(c.totals)
	return c, nil
}

// Len returns the number of cards.
func (c *Catalog) Len() int {
	return len(c.cards)
}

// Get looks up a card by id.
func (c *Catalog) Get(id string) (Card, bool) {
	for _, card := range c.cards {
		if card.ID == id {
			return card, true
		}
	}
	return Card{}, false
}

// Random draws count card ids. The same card may be drawn twice.
// Draws are biased toward mid-value cards: a random weight blends a uniform
// pick over the distinct totals with the middle total.
func (c *Catalog) Random(count int) ([]string, error) {
	if len(c.cards) == 0 {
		return nil, ErrEmptyCatalog
	}

	bias := float64(len(c.totals)) / 2
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		w := rand.Float64()
		idx := int(rand.Float64()*float64(len(c.totals))*(1-w) + bias*w)
		if idx >= len(c.totals) {
			idx = len(c.totals) - 1
		}
		bucket := c.byTotal[c.totals[idx]]
		ids = append(ids, bucket[rand.IntN(len(bucket))].ID)
	}
	return ids, nil
}
