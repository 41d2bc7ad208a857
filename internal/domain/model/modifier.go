package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/bytedance/sonic"
)

// ModifierKind is the wire key of a physics modifier.
type ModifierKind string

// Known physics modifiers. Values are the exact wire keys.
const (
	KindGravity           ModifierKind = "gravity"
	KindJumpMult          ModifierKind = "jumpmult"
	KindJumpForce         ModifierKind = "jumpforce"
	KindBounceMult        ModifierKind = "bouncemult"
	KindScaleMult         ModifierKind = "scalemult"
	KindMassMult          ModifierKind = "massmult"
	KindFrictionMult      ModifierKind = "frictionmult"
	KindBlastJumpMult     ModifierKind = "blastjumpmult"
	KindBlastPushMult     ModifierKind = "blastpushmult"
	KindBlastRangeMult    ModifierKind = "blastrangemult"
	KindBlastCooldownMult ModifierKind = "blastcooldownmult"
	KindRollX             ModifierKind = "rollX"
	KindRollY             ModifierKind = "rollY"
	KindCanBlast          ModifierKind = "canblast"
	KindAirJumps          ModifierKind = "airjumps"
	KindNoPowerups        ModifierKind = "nopowerups"
	KindReverse           ModifierKind = "reverse"
	KindCheckpointGems    ModifierKind = "checkpointgems"
	KindNoGems            ModifierKind = "nogems"
	KindNoTimeTravel      ModifierKind = "notimetravel"
	KindTrophyGem         ModifierKind = "trophygem"
	KindTrophyEnd         ModifierKind = "trophyend"
	KindBoomerang         ModifierKind = "boomerang"
	KindStartPowerup      ModifierKind = "startpowerup"
	KindReplacePowerup    ModifierKind = "replacepowerup"
	KindPlatformSpeed     ModifierKind = "platformspeed"
	KindBlastX            ModifierKind = "blastX"
	KindBlastY            ModifierKind = "blastY"
	KindImpactX           ModifierKind = "impX"
	KindImpactY           ModifierKind = "impY"
	KindUseSounds         ModifierKind = "usesounds"
	KindMegaForce         ModifierKind = "megaforce"
	KindFullShadow        ModifierKind = "fullshadow"
	KindMPSpawnOffset     ModifierKind = "mpspawnoffset"

	// KindUnknown marks a key this build does not know about.
	KindUnknown ModifierKind = ""
)

// Payload is the value type a modifier kind carries.
type Payload int

// Payload types.
const (
	PayloadNone Payload = iota
	PayloadNumber
	PayloadInt
	PayloadBool
	PayloadString
)

type modifierSpec struct {
	payload Payload
	label   string
}

var modifierSpecs = map[ModifierKind]modifierSpec{
	KindGravity:           {PayloadNumber, "Gravity"},
	KindJumpMult:          {PayloadNumber, "Jump Height"},
	KindJumpForce:         {PayloadNumber, "Jump Force"},
	KindBounceMult:        {PayloadNumber, "Bounce Force"},
	KindScaleMult:         {PayloadNumber, "Marble Size"},
	KindMassMult:          {PayloadNumber, "Mass"},
	KindFrictionMult:      {PayloadNumber, "Friction Force"},
	KindBlastJumpMult:     {PayloadNumber, "Blast Height"},
	KindBlastPushMult:     {PayloadNumber, "Blast Push"},
	KindBlastRangeMult:    {PayloadNumber, "Blast Range"},
	KindBlastCooldownMult: {PayloadNumber, "Blast Cooldown"},
	KindRollX:             {PayloadNumber, "Roll Force X"},
	KindRollY:             {PayloadNumber, "Roll Force Y"},
	KindCanBlast:          {PayloadBool, "Blast Available"},
	KindAirJumps:          {PayloadInt, "Air Jumps"},
	KindNoPowerups:        {PayloadBool, "No Powerups"},
	KindReverse:           {PayloadBool, "Level Reversed"},
	KindCheckpointGems:    {PayloadBool, "Checkpoints Add Gems"},
	KindNoGems:            {PayloadBool, "No Gems"},
	KindNoTimeTravel:      {PayloadBool, "No Time Travels"},
	KindTrophyGem:         {PayloadBool, "Trophy Adds Gem"},
	KindTrophyEnd:         {PayloadBool, "Trophy is Goal"},
	KindBoomerang:         {PayloadBool, ""},
	KindStartPowerup:      {PayloadString, "Start With"},
	KindReplacePowerup:    {PayloadString, "Replace Powerups"},
	KindPlatformSpeed:     {PayloadNumber, "Platform Speed"},
	KindBlastX:            {PayloadNumber, "Blast X"},
	KindBlastY:            {PayloadNumber, "Blast Y"},
	KindImpactX:           {PayloadNumber, "Impact X"},
	KindImpactY:           {PayloadNumber, "Impact Y"},
	KindUseSounds:         {PayloadBool, "Use Sounds"},
	KindMegaForce:         {PayloadNumber, "Mega Force"},
	KindFullShadow:        {PayloadBool, "Full Shadow"},
	KindMPSpawnOffset:     {PayloadBool, "MP Spawn Offset"},
}

// PayloadOf returns the payload type of a kind; PayloadNone for unknown kinds.
func PayloadOf(kind ModifierKind) Payload {
	return modifierSpecs[kind].payload
}

// Modifier is one physics modifier. Only the field matching the kind's
// payload type is meaningful.
type Modifier struct {
	Kind ModifierKind
	// Key is the wire key as received. It equals Kind for known kinds.
	Key    string
	Number float64
	Int    int
	Flag   bool
	Text   string
}

// Known reports whether the modifier kind is recognized.
func (m Modifier) Known() bool {
	return m.Kind != KindUnknown
}

// String is the display text, e.g. "Gravity: 50%", "Air Jumps: 2" or
// "No Gems". Unknown kinds and kinds without a label render as "".
func (m Modifier) String() string {
	spec, ok := modifierSpecs[m.Kind]
	if !ok || spec.label == "" {
		return ""
	}
	switch spec.payload {
	case PayloadNumber:
		return spec.label + ": " + percent(m.Number)
	case PayloadInt:
		return spec.label + ": " + strconv.Itoa(m.Int)
	case PayloadString:
		return spec.label + ": " + m.Text
	default:
		return spec.label
	}
}

// percent renders a multiplier as a percentage with single precision.
func percent(v float64) string {
	p := float32(v) * 100
	return strconv.FormatFloat(float64(p), 'f', -1, 32) + "%"
}

func (m Modifier) value() any {
	switch PayloadOf(m.Kind) {
	case PayloadNumber:
		return m.Number
	case PayloadInt:
		return m.Int
	case PayloadBool:
		return m.Flag
	case PayloadString:
		return m.Text
	default:
		return nil
	}
}

// Modifiers is a set of physics modifiers sorted by key.
type Modifiers []Modifier

// Get returns the modifier of the given kind.
func (ms Modifiers) Get(kind ModifierKind) (Modifier, bool) {
	for _, m := range ms {
		if m.Kind == kind && kind != KindUnknown {
			return m, true
		}
	}
	return Modifier{}, false
}

// Strings returns the display text of every known modifier with a label.
func (ms Modifiers) Strings() []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		if s := m.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// UnmarshalJSON decodes the wire object {"gravity": 0.5, "nogems": true}.
// Unknown keys are kept as KindUnknown; a known key with the wrong payload
// type is an error.
func (ms *Modifiers) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("physics modifiers: %w", err)
	}
	out := make(Modifiers, 0, len(raw))
	for key, v := range raw {
		m, err := decodeModifier(key, v)
		if err != nil {
			return err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	*ms = out
	return nil
}

// MarshalJSON encodes the set back into its wire object. Unknown kinds are
// dropped.
func (ms Modifiers) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(ms))
	for _, m := range ms {
		if m.Known() {
			raw[string(m.Kind)] = m.value()
		}
	}
	return sonic.ConfigStd.Marshal(raw)
}

func decodeModifier(key string, v any) (Modifier, error) {
	kind := ModifierKind(key)
	spec, ok := modifierSpecs[kind]
	if !ok {
		return Modifier{Kind: KindUnknown, Key: key}, nil
	}
	m := Modifier{Kind: kind, Key: key}
	switch spec.payload {
	case PayloadNumber:
		f, ok := v.(float64)
		if !ok {
			return m, fmt.Errorf("physics modifier %q: want number, got %T", key, v)
		}
		m.Number = f
	case PayloadInt:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return m, fmt.Errorf("physics modifier %q: want integer, got %v", key, v)
		}
		m.Int = int(f)
	case PayloadBool:
		b, ok := v.(bool)
		if !ok {
			return m, fmt.Errorf("physics modifier %q: want bool, got %T", key, v)
		}
		m.Flag = b
	case PayloadString:
		s, ok := v.(string)
		if !ok {
			return m, fmt.Errorf("physics modifier %q: want string, got %T", key, v)
		}
		m.Text = s
	}
	return m, nil
}
