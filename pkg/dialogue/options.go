package dialogue

import "strings"

// OptionID identifies a selectable option
type OptionID string

const (
	OptionHeal    OptionID = "heal"
	OptionSecond  OptionID = "second"
	OptionDecline OptionID = "decline"

	flavorPrefix = "flavor:"
)

// FlavorOptionID builds the option id for a flavor key
func FlavorOptionID(key string) OptionID {
	return OptionID(flavorPrefix + key)
}

// IsFlavor reports whether id names a flavor option
func (id OptionID) IsFlavor() bool {
	return strings.HasPrefix(string(id), flavorPrefix)
}

// FlavorKey returns the flavor key of id, or "" if id is not a flavor option
func (id OptionID) FlavorKey() string {
	if !id.IsFlavor() {
		return ""
	}
	return strings.TrimPrefix(string(id), flavorPrefix)
}

// Option is one entry of a published option set
type Option struct {
	ID    OptionID `json:"id"`
	Label string   `json:"label"`
}

// FlavorOption is a repeatable, purely textual option
type FlavorOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Reply string `json:"reply"`
}

// FlavorProvider supplies the flavor options offered between the gameplay
// options and the decline option
type FlavorProvider interface {
	FlavorOptions(st *State) []FlavorOption
}

// StaticFlavor offers the same flavor options on every round
type StaticFlavor []FlavorOption

func (f StaticFlavor) FlavorOptions(*State) []FlavorOption {
	return f
}

// NoFlavor offers no flavor options
var NoFlavor FlavorProvider = StaticFlavor(nil)
