package namespaces

import (
	"fmt"
	"slices"

	"github.com/vitwit/walletkit/types"
)

// Mode selects which default methods an outbound namespace carries.
type Mode int

const (
	ModeRequired Mode = iota
	ModeOptional
)

func (m Mode) String() string {
	switch m {
	case ModeRequired:
		return "required"
	case ModeOptional:
		return "optional"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "required" or "optional".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "required":
		return ModeRequired, nil
	case "optional":
		return ModeOptional, nil
	default:
		return 0, fmt.Errorf("unknown namespace mode %q", s)
	}
}

// BuildOutbound builds the namespaces a wallet-originated proposal sends
// for chainIDs. Required entries carry the required methods and the
// namespace events; optional entries carry the optional methods and no
// events.
func BuildOutbound(chainIDs []string, mode Mode, table DefaultsSource) (types.Namespaces, error) {
	out := make(types.Namespaces)
	for _, ns := range GroupByNamespace(chainIDs) {
		defaults, err := table.Defaults(ns)
		if err != nil {
			return nil, err
		}

		desc := types.Namespace{
			Chains: chainsOf(chainIDs, ns),
			Events: []string{},
		}
		switch mode {
		case ModeRequired:
			desc.Methods = slices.Clone(defaults.RequiredMethods)
			desc.Events = append(desc.Events, defaults.Events...)
		case ModeOptional:
			desc.Methods = slices.Clone(defaults.OptionalMethods)
		default:
			return nil, fmt.Errorf("unknown namespace mode %v", mode)
		}
		if desc.Methods == nil {
			desc.Methods = []string{}
		}
		out[ns] = desc
	}
	return out, nil
}

// BuildRequired is BuildOutbound in required mode.
func BuildRequired(chainIDs []string, table DefaultsSource) (types.Namespaces, error) {
	return BuildOutbound(chainIDs, ModeRequired, table)
}

// BuildOptional is BuildOutbound in optional mode.
func BuildOptional(chainIDs []string, table DefaultsSource) (types.Namespaces, error) {
	return BuildOutbound(chainIDs, ModeOptional, table)
}
