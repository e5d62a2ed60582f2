package models

// CharacterDetails is a read-only snapshot of an in-game character supplied
// by the caller on every completion request. The relay never derives or
// persists it; the game owns the data. Every field is optional on the wire.
type CharacterDetails struct {
	Name          string         `json:"name"`
	Mood          string         `json:"mood"`
	Health        string         `json:"health"`
	Personality   string         `json:"personality"`
	Relationships string         `json:"relationships"`
	Environment   string         `json:"environment"`
	Needs         string         `json:"needs"`
	Backstory     string         `json:"backstory"`
	Skills        map[string]int `json:"skills"`
	Passions      map[string]string `json:"passions"`
	CurrentJob    string         `json:"currentJob"`
	Inventory     string         `json:"inventory"`
	RecentEvents  []string       `json:"recentEvents"`

	// Extended snapshot fields; populated only by newer game clients.
	Faction               string `json:"faction,omitempty"`
	Gender                string `json:"gender,omitempty"`
	AgeBiologicalYears    int    `json:"ageBiologicalYears,omitempty"`
	AgeChronologicalYears int    `json:"ageChronologicalYears,omitempty"`
	HealthSummary         string `json:"healthSummary,omitempty"`
	Capacities            string `json:"capacities,omitempty"`
	WorkPriorities        string `json:"workPriorities,omitempty"`
	Apparel               string `json:"apparel,omitempty"`
	Equipment             string `json:"equipment,omitempty"`
	Persona               string `json:"persona,omitempty"`
	Description           string `json:"description,omitempty"`
	Pronouns              string `json:"pronouns,omitempty"`
}
