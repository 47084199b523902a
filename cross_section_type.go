package crossnet

import (
	"strings"

	"github.com/pkg/errors"
)

type CrossSectionType uint16

const (
	CROSS_SECTION_DISPLAY = CrossSectionType(iota + 1)
	CROSS_SECTION_MEASURING
	CROSS_SECTION_COMBINED

	CROSS_SECTION_UNDEFINED = CrossSectionType(0)
)

func (iotaIdx CrossSectionType) String() string {
	if int(iotaIdx) >= len(crossSectionTypeTxt) {
		return "undefined"
	}
	return crossSectionTypeTxt[iotaIdx]
}

var (
	crossSectionTypeTxt = [...]string{"undefined", "DISPLAY", "MEASURING", "COMBINED"}

	crossSectionTypeByName = map[string]CrossSectionType{
		"DISPLAY":   CROSS_SECTION_DISPLAY,
		"MEASURING": CROSS_SECTION_MEASURING,
		"COMBINED":  CROSS_SECTION_COMBINED,
	}
)

// ParseCrossSectionType parses type name (case-insensitive)
func ParseCrossSectionType(str string) (CrossSectionType, error) {
	csType, ok := crossSectionTypeByName[strings.ToUpper(strings.TrimSpace(str))]
	if !ok {
		return CROSS_SECTION_UNDEFINED, errors.Errorf("Unknown cross section type '%s'", str)
	}
	return csType, nil
}

// IsDisplay reports whether cross section of given type shows information to drivers
func (iotaIdx CrossSectionType) IsDisplay() bool {
	return iotaIdx == CROSS_SECTION_DISPLAY || iotaIdx == CROSS_SECTION_COMBINED
}

// IsMeasuring reports whether cross section of given type measures traffic
func (iotaIdx CrossSectionType) IsMeasuring() bool {
	return iotaIdx == CROSS_SECTION_MEASURING || iotaIdx == CROSS_SECTION_COMBINED
}

// complementary returns true only for the DISPLAY + MEASURING pair (either order)
func complementary(a, b CrossSectionType) bool {
	return (a == CROSS_SECTION_DISPLAY && b == CROSS_SECTION_MEASURING) ||
		(a == CROSS_SECTION_MEASURING && b == CROSS_SECTION_DISPLAY)
}
