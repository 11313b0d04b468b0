package domain

// Property is the subset of the property directory the engine needs.
type Property struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"owner_id"`
	Title       string `json:"title"`
	BasePrice   Money  `json:"base_price_cents"`
	Currency    string `json:"currency"`
	MaxAdults   int    `json:"max_adults"`
	MaxChildren int    `json:"max_children"`
	InstantBook bool   `json:"instant_book"`
	MinStay     int    `json:"min_stay"`
	MaxStay     int    `json:"max_stay"`
}

// MaxOccupancy is the combined guest limit; 0 means unlimited.
func (p Property) MaxOccupancy() int {
	return p.MaxAdults + p.MaxChildren
}

func (p Property) Fits(o Occupancy) bool {
	limit := p.MaxOccupancy()
	return limit == 0 || o.Total() <= limit
}

func (p Property) OwnedBy(a Actor) bool {
	return a.Is(p.OwnerID)
}

type Occupancy struct {
	Adults   int
	Children int
}

func (o Occupancy) Total() int {
	return o.Adults + o.Children
}

func (o Occupancy) Validate() error {
	if o.Adults < 1 {
		return ValidationError("at least one adult is required")
	}
	if o.Children < 0 {
		return ValidationError("children count cannot be negative")
	}
	return nil
}
