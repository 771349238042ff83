package models

// Room is a single bookable unit as listed in the catalog.
type Room struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	RoomType string `json:"room_type"`
	Persons  int    `json:"persons"`
}

// RoomSummary is the reduced room view kept next to the property row.
type RoomSummary struct {
	ID      string `json:"id"`
	Persons int    `json:"persons"`
}

// Property is one catalog row. Results is filled by the merge step only.
type Property struct {
	Index       int     `json:"index"`
	Order       int     `json:"order"`
	URL         string  `json:"url"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Street      string  `json:"street"`
	FullAddress string  `json:"full_address"`

	// PageName and PageTitle are resolved from the property page during a run
	PageName  string `json:"page_name,omitempty"`
	PageTitle string `json:"page_title,omitempty"`

	Results map[string]DateResult `json:"results"`

	rooms    []Room
	capacity int
}

// SetRooms replaces the room list and recomputes the capacity.
func (p *Property) SetRooms(rooms []Room) {
	p.rooms = append([]Room(nil), rooms...)
	p.capacity = 0
	for _, r := range p.rooms {
		p.capacity += r.Persons
	}
}

// Rooms returns a copy of the full room view.
func (p *Property) Rooms() []Room {
	return append([]Room(nil), p.rooms...)
}

// RoomSummaries returns the reduced room view (identifier and capacity).
func (p *Property) RoomSummaries() []RoomSummary {
	out := make([]RoomSummary, len(p.rooms))
	for i, r := range p.rooms {
		out[i] = RoomSummary{ID: r.ID, Persons: r.Persons}
	}
	return out
}

// Capacity is the sum of the person capacity of all rooms.
func (p *Property) Capacity() int {
	return p.capacity
}

// Eligible reports whether the property can host the given number of adults.
func (p *Property) Eligible(adults int) bool {
	return p.capacity >= adults
}

// MapRecord is the compact map view of a property.
type MapRecord struct {
	PropertyIndex int     `json:"hotel_index"`
	Name          string  `json:"name"`
	FullAddress   string  `json:"full_address"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Capacity      int     `json:"capacity"`
}
