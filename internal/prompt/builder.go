// Package prompt renders character snapshots and conversation history into
// the single text blob sent to the upstream completion provider.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"character-chat-relay/internal/models"
)

// DefaultHistoryWindow is the number of prior exchanges included when no
// explicit window is configured.
const DefaultHistoryWindow = 10

// Sentinels substituted for absent snapshot fields. The prompt must never
// contain an empty value or a serialized null.
const (
	unknownValue          = "Unknown"
	noSkillsSentinel      = "No skills available"
	noPassionsSentinel    = "No passions available"
	noEventsSentinel      = "No recent events available"
)

// Builder turns a character snapshot, prior exchanges, and pending
// interactions into a completion prompt. Build is deterministic: it reads no
// clocks and no global state, so identical inputs produce identical text.
type Builder struct {
	// HistoryWindow caps how many of the most recent prior exchanges are
	// included. Zero or negative falls back to DefaultHistoryWindow.
	HistoryWindow int
}

// NewBuilder returns a Builder with the given context window.
func NewBuilder(historyWindow int) *Builder {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Builder{HistoryWindow: historyWindow}
}

// Build renders the full prompt. History must be ordered oldest first; if it
// exceeds the window, only the most recent entries are kept. The rendered
// prompt always ends with the "<name>: " generation cue for the last pending
// interaction.
func (b *Builder) Build(details *models.CharacterDetails, history []models.ChatExchange, interactions []string) string {
	name := valueOr(details.Name, unknownValue)

	var sb strings.Builder

	sb.WriteString("### Instruction:\n")
	fmt.Fprintf(&sb,
		"The following is a role-play conversation between the user and %s, a colonist in a remote colony. "+
			"Stay in character as %s at all times: respond only as %s, never as the user, and never break character.\n\n",
		name, name, name)

	sb.WriteString("### Character Details:\n")
	writeField(&sb, "Name", details.Name)
	writeField(&sb, "Mood", details.Mood)
	writeField(&sb, "Health", details.Health)
	writeField(&sb, "Personality", details.Personality)
	writeField(&sb, "Relationships", details.Relationships)
	writeField(&sb, "Environment", details.Environment)
	writeField(&sb, "Needs", details.Needs)
	writeField(&sb, "Backstory", details.Backstory)
	fmt.Fprintf(&sb, "- Skills: %s\n", renderSkills(details.Skills))
	fmt.Fprintf(&sb, "- Passions: %s\n", renderPassions(details.Passions))
	writeField(&sb, "Current Job", details.CurrentJob)
	writeField(&sb, "Inventory", details.Inventory)
	fmt.Fprintf(&sb, "- Recent Events: %s\n", renderEvents(details.RecentEvents))

	// Extended snapshot fields render only when the game client sent them.
	writeOptional(&sb, "Faction", details.Faction)
	writeOptional(&sb, "Gender", details.Gender)
	if details.AgeBiologicalYears > 0 {
		fmt.Fprintf(&sb, "- Age (Biological): %d\n", details.AgeBiologicalYears)
	}
	if details.AgeChronologicalYears > 0 {
		fmt.Fprintf(&sb, "- Age (Chronological): %d\n", details.AgeChronologicalYears)
	}
	writeOptional(&sb, "Health Summary", details.HealthSummary)
	writeOptional(&sb, "Capacities", details.Capacities)
	writeOptional(&sb, "Work Priorities", details.WorkPriorities)
	writeOptional(&sb, "Apparel", details.Apparel)
	writeOptional(&sb, "Equipment", details.Equipment)
	writeOptional(&sb, "Persona", details.Persona)
	writeOptional(&sb, "Description", details.Description)
	writeOptional(&sb, "Pronouns", details.Pronouns)

	sb.WriteString("\n### Conversation:\n")
	for _, exchange := range b.window(history) {
		fmt.Fprintf(&sb, "User: %s\n%s: %s\n", exchange.Interaction, name, exchange.Content)
	}

	// Each pending interaction ends with the character cue; the final cue is
	// the last content of the prompt so single-turn providers continue from it.
	for _, interaction := range interactions {
		fmt.Fprintf(&sb, "User: %s\n%s: ", interaction, name)
	}

	return sb.String()
}

// window returns the at-most-HistoryWindow most recent entries, preserving
// oldest-first order.
func (b *Builder) window(history []models.ChatExchange) []models.ChatExchange {
	limit := b.HistoryWindow
	if limit <= 0 {
		limit = DefaultHistoryWindow
	}
	if len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

func writeField(sb *strings.Builder, label, value string) {
	fmt.Fprintf(sb, "- %s: %s\n", label, valueOr(value, unknownValue))
}

func writeOptional(sb *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(sb, "- %s: %s\n", label, value)
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// renderSkills flattens the skill map to "name: level" pairs. Keys are
// sorted so the prompt is stable across runs.
func renderSkills(skills map[string]int) string {
	if len(skills) == 0 {
		return noSkillsSentinel
	}
	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s: %d", name, skills[name]))
	}
	return strings.Join(pairs, ", ")
}

func renderPassions(passions map[string]string) string {
	if len(passions) == 0 {
		return noPassionsSentinel
	}
	names := make([]string, 0, len(passions))
	for name := range passions {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s: %s", name, passions[name]))
	}
	return strings.Join(pairs, ", ")
}

func renderEvents(events []string) string {
	if len(events) == 0 {
		return noEventsSentinel
	}
	return strings.Join(events, ", ")
}
