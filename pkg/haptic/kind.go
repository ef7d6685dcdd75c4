package haptic

import "fmt"

// Kind is a discrete feedback pattern. Each kind maps to a fixed native
// pattern code; the mapping is a stable contract, not configuration.
type Kind uint8

const (
	// KindLight is the lightest single click.
	KindLight Kind = iota

	// KindHeavy is the heaviest single click.
	KindHeavy

	// KindWeak is a weak click.
	KindWeak

	// KindMedium is a medium click.
	KindMedium

	// KindStrong is a strong click.
	KindStrong

	// KindLimitClick is the "hit a limit" detent click.
	KindLimitClick

	// KindBuzz is a short vibration.
	KindBuzz

	// KindDoubleBuzz is two short vibrations.
	KindDoubleBuzz
)

// Code returns the native actuation pattern code for the kind.
func (k Kind) Code() int32 {
	switch k {
	case KindLight:
		return 1
	case KindHeavy:
		return 2
	case KindWeak:
		return 3
	case KindMedium:
		return 4
	case KindStrong:
		return 5
	case KindLimitClick:
		return 6
	case KindBuzz:
		return 15
	case KindDoubleBuzz:
		return 16
	default:
		return KindMedium.Code()
	}
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLight:
		return "light"
	case KindHeavy:
		return "heavy"
	case KindWeak:
		return "weak"
	case KindMedium:
		return "medium"
	case KindStrong:
		return "strong"
	case KindLimitClick:
		return "limit"
	case KindBuzz:
		return "buzz"
	case KindDoubleBuzz:
		return "double-buzz"
	default:
		return "unknown"
	}
}

// Kinds returns all feedback kinds in display order.
func Kinds() []Kind {
	return []Kind{
		KindLight, KindHeavy, KindWeak, KindMedium,
		KindStrong, KindLimitClick, KindBuzz, KindDoubleBuzz,
	}
}

// ParseKind parses a kind name as produced by String.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown feedback kind %q", s)
}
