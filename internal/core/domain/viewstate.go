package domain

import "time"

// TravelModeWalking is the only travel mode requested from the directions renderer.
const TravelModeWalking = "WALKING"

// Advisory is a user-facing message surfaced by the explore screen.
type Advisory struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// RouteOverlay tells the external directions renderer what path to draw.
type RouteOverlay struct {
	Origin      GeoPoint `json:"origin"`
	Destination GeoPoint `json:"destination"`
	Mode        string   `json:"mode"`
}

// MapViewState is the complete view model of one explore screen.
// RouteVisible implies SelectedPin != nil and LiveLocation != nil.
type MapViewState struct {
	Version      uint64        `json:"version"`
	Region       Region        `json:"region"`
	Pins         []Pin         `json:"pins"`
	SelectedPin  *Pin          `json:"selected_pin,omitempty"`
	LiveLocation *LiveLocation `json:"live_location,omitempty"`
	RouteVisible bool          `json:"route_visible"`
	Route        *RouteOverlay `json:"route,omitempty"`
	Loading      bool          `json:"loading"`
}

// ScreenView is what a presentation client renders: the view state plus the
// advisories raised so far, oldest first.
type ScreenView struct {
	State      MapViewState `json:"state"`
	Advisories []Advisory   `json:"advisories"`
}

// Clone returns a deep copy safe to hand to readers.
func (s MapViewState) Clone() MapViewState {
	out := s
	if s.Pins != nil {
		out.Pins = make([]Pin, len(s.Pins))
		copy(out.Pins, s.Pins)
	}
	if s.SelectedPin != nil {
		p := *s.SelectedPin
		out.SelectedPin = &p
	}
	if s.LiveLocation != nil {
		l := *s.LiveLocation
		out.LiveLocation = &l
	}
	if s.Route != nil {
		r := *s.Route
		out.Route = &r
	}
	return out
}
