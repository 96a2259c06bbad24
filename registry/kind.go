package registry

import (
	"encoding/json"
	"strings"
)

// Kind identifies which installation procedure and asset naming rules apply
// to an add-on.
type Kind int

const (
	Unknown Kind = iota
	HitboxOverlay
	WakeupTool
	FasterLoadingTimes
	MirrorColorSelect
	BackgroundGamepad
)

var kindNames = map[Kind]string{
	Unknown:            "Unknown",
	HitboxOverlay:      "HitboxOverlay",
	WakeupTool:         "WakeupTool",
	FasterLoadingTimes: "FasterLoadingTimes",
	MirrorColorSelect:  "MirrorColorSelect",
	BackgroundGamepad:  "BackgroundGamepad",
}

// Kinds lists every known kind except Unknown.
func Kinds() []Kind {
	return []Kind{HitboxOverlay, WakeupTool, FasterLoadingTimes, MirrorColorSelect, BackgroundGamepad}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// ParseKind is case-insensitive; anything unrecognized is Unknown.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return k
		}
	}
	return Unknown
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		*k = Unknown
		return nil
	}
	*k = ParseKind(name)
	return nil
}
