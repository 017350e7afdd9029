package cat

import (
	"encoding/json"
	"math"
)

// Session is the state of one adaptive run. It belongs to the caller:
// the engine reads it and hands back an updated copy.
type Session struct {
	// Administered lists item ids in the order they were given.
	Administered []string `json:"administered"`

	// Responses maps item id to the scored response (0 or 1).
	Responses map[string]int `json:"responses"`

	// Theta is the current ability estimate.
	Theta float64 `json:"theta"`

	// SE is the standard error of Theta. +Inf means not yet estimable.
	SE float64 `json:"se"`
}

// NewSession returns a session starting at theta with undefined SE.
func NewSession(theta float64) Session {
	return Session{
		Responses: make(map[string]int),
		Theta:     theta,
		SE:        math.Inf(1),
	}
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := Session{
		Administered: make([]string, len(s.Administered)),
		Responses:    make(map[string]int, len(s.Responses)),
		Theta:        s.Theta,
		SE:           s.SE,
	}
	copy(out.Administered, s.Administered)
	for k, v := range s.Responses {
		out.Responses[k] = v
	}
	return out
}

// Record appends a scored response. Any non-zero response counts as 1.
func (s *Session) Record(itemID string, response int) {
	if s.Responses == nil {
		s.Responses = make(map[string]int)
	}
	if response != 0 {
		response = 1
	}
	if _, seen := s.Responses[itemID]; !seen {
		s.Administered = append(s.Administered, itemID)
	}
	s.Responses[itemID] = response
}

// Given reports whether the item was already administered.
func (s Session) Given(itemID string) bool {
	_, ok := s.Responses[itemID]
	return ok
}

// Estimable reports whether SE is finite.
func (s Session) Estimable() bool {
	return !math.IsInf(s.SE, 1) && !math.IsNaN(s.SE)
}

// sessionJSON mirrors Session with a nullable SE, since JSON has no Inf.
type sessionJSON struct {
	Administered []string       `json:"administered"`
	Responses    map[string]int `json:"responses"`
	Theta        float64        `json:"theta"`
	SE           *float64       `json:"se"`
}

// MarshalJSON encodes an infinite SE as null.
func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{
		Administered: s.Administered,
		Responses:    s.Responses,
		Theta:        s.Theta,
	}
	if s.Estimable() {
		se := s.SE
		out.SE = &se
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null SE as +Inf.
func (s *Session) UnmarshalJSON(data []byte) error {
	var in sessionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Administered = in.Administered
	s.Responses = in.Responses
	if s.Responses == nil {
		s.Responses = make(map[string]int)
	}
	s.Theta = in.Theta
	s.SE = math.Inf(1)
	if in.SE != nil {
		s.SE = *in.SE
	}
	return nil
}
