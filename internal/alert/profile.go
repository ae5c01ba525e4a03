package alert

import (
	"encoding/json"
	"fmt"
	"strings"

	"darksky-monitor/internal/forecast"
)

// Profile is a named, owned set of thresholds. Owner and Name together are
// its identity. An attribute without a threshold is unconstrained.
type Profile struct {
	Owner       string
	Name        string
	Location    string
	MinDuration int

	thresholds map[forecast.Attribute]Threshold
}

func NewProfile(owner, name, location string) *Profile {
	return &Profile{
		Owner:      owner,
		Name:       name,
		Location:   location,
		thresholds: make(map[forecast.Attribute]Threshold),
	}
}

// Add sets the threshold for t.Attribute, replacing any previous one.
func (p *Profile) Add(t Threshold) {
	if p.thresholds == nil {
		p.thresholds = make(map[forecast.Attribute]Threshold)
	}
	p.thresholds[t.Attribute] = t
}

// Remove drops the threshold for attr and reports whether one was set.
func (p *Profile) Remove(attr forecast.Attribute) bool {
	if _, ok := p.thresholds[attr]; !ok {
		return false
	}
	delete(p.thresholds, attr)
	return true
}

func (p *Profile) Get(attr forecast.Attribute) (Threshold, bool) {
	t, ok := p.thresholds[attr]
	return t, ok
}

func (p *Profile) SetDuration(hours int) {
	if hours < 0 {
		hours = 0
	}
	p.MinDuration = hours
}

// Thresholds returns the configured thresholds in attribute order.
func (p *Profile) Thresholds() []Threshold {
	out := make([]Threshold, 0, len(p.thresholds))
	for _, attr := range forecast.Attributes {
		if t, ok := p.thresholds[attr]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (p *Profile) String() string {
	return fmt.Sprintf("%s by %s", p.Name, p.Owner)
}

// Describe renders the profile as shown to its owner.
func (p *Profile) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alert profile %s for %s.\n\nCurrent alert profile:\n", p.Name, p.Location)
	for _, t := range p.Thresholds() {
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nConditions must occur for at least %d hour(s).", p.MinDuration)
	return b.String()
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := *p
	c.thresholds = make(map[forecast.Attribute]Threshold, len(p.thresholds))
	for k, v := range p.thresholds {
		c.thresholds[k] = v
	}
	return &c
}

type profileJSON struct {
	Owner       string                     `json:"owner"`
	Name        string                     `json:"name"`
	Location    string                     `json:"location"`
	MinDuration int                        `json:"min_duration"`
	Thresholds  map[string]json.RawMessage `json:"thresholds"`
}

func (p *Profile) MarshalJSON() ([]byte, error) {
	thresholds, err := EncodeThresholds(p.thresholds)
	if err != nil {
		return nil, err
	}
	return json.Marshal(profileJSON{
		Owner:       p.Owner,
		Name:        p.Name,
		Location:    p.Location,
		MinDuration: p.MinDuration,
		Thresholds:  thresholds,
	})
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw profileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	thresholds, err := DecodeThresholds(raw.Thresholds)
	if err != nil {
		return err
	}
	*p = Profile{
		Owner:       raw.Owner,
		Name:        raw.Name,
		Location:    raw.Location,
		MinDuration: raw.MinDuration,
		thresholds:  thresholds,
	}
	return nil
}

// EncodeThresholds produces the persisted form of a threshold mapping,
// keyed by attribute key.
func EncodeThresholds(m map[forecast.Attribute]Threshold) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(m))
	for attr, t := range m {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		out[attr.Key()] = data
	}
	return out, nil
}

func DecodeThresholds(raw map[string]json.RawMessage) (map[forecast.Attribute]Threshold, error) {
	out := make(map[forecast.Attribute]Threshold, len(raw))
	for key, data := range raw {
		attr, err := forecast.ParseAttribute(key)
		if err != nil {
			return nil, err
		}
		t, err := DecodeThreshold(attr, data)
		if err != nil {
			return nil, err
		}
		out[attr] = t
	}
	return out, nil
}

// ThresholdMap exposes the mapping for persistence.
func (p *Profile) ThresholdMap() map[forecast.Attribute]Threshold {
	return p.thresholds
}

// SetThresholds replaces the whole mapping.
func (p *Profile) SetThresholds(m map[forecast.Attribute]Threshold) {
	p.thresholds = make(map[forecast.Attribute]Threshold, len(m))
	for k, v := range m {
		p.thresholds[k] = v
	}
}
