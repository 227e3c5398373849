package region

import "strconv"

// prefixRange maps an inclusive 3-digit ZIP prefix range to a state
// abbreviation.
type prefixRange struct {
	lo, hi int
	state  string
}

// prefixRanges covers all 50 states plus DC by leading 3-digit ZIP prefix.
// Military (090-098) and territory prefixes are intentionally absent; an
// unknown prefix yields "" and disables the cross-check.
var prefixRanges = []prefixRange{
	{4, 5, "NY"}, // Holtsville / Fishers Island
	{10, 27, "MA"},
	{28, 29, "RI"},
	{30, 38, "NH"},
	{39, 49, "ME"},
	{50, 59, "VT"},
	{60, 69, "CT"},
	{70, 89, "NJ"},
	{100, 149, "NY"},
	{150, 196, "PA"},
	{197, 199, "DE"},
	{200, 200, "DC"},
	{202, 205, "DC"},
	{206, 219, "MD"},
	{220, 246, "VA"},
	{247, 268, "WV"},
	{270, 289, "NC"},
	{290, 299, "SC"},
	{300, 319, "GA"},
	{320, 349, "FL"},
	{350, 369, "AL"},
	{370, 385, "TN"},
	{386, 397, "MS"},
	{398, 399, "GA"},
	{400, 427, "KY"},
	{430, 459, "OH"},
	{460, 479, "IN"},
	{480, 499, "MI"},
	{500, 528, "IA"},
	{530, 549, "WI"},
	{550, 567, "MN"},
	{570, 577, "SD"},
	{580, 588, "ND"},
	{590, 599, "MT"},
	{600, 629, "IL"},
	{630, 658, "MO"},
	{660, 679, "KS"},
	{680, 693, "NE"},
	{700, 714, "LA"},
	{716, 729, "AR"},
	{730, 749, "OK"},
	{750, 799, "TX"},
	{800, 816, "CO"},
	{820, 831, "WY"},
	// 834 serves Idaho but also Star Valley and Alta, WY; at 3 digits the
	// overlap is unresolvable and Idaho is the majority assignment.
	{832, 838, "ID"},
	{840, 847, "UT"},
	{850, 865, "AZ"},
	{870, 884, "NM"},
	{885, 885, "TX"}, // El Paso
	{889, 898, "NV"},
	{900, 961, "CA"},
	{962, 966, "CA"},
	{967, 968, "HI"},
	{970, 979, "OR"},
	{980, 994, "WA"},
	{995, 999, "AK"},
}

// prefixExceptions carve single prefixes out of their surrounding range.
var prefixExceptions = map[int]string{
	201: "VA", // northern Virginia inside the DC/MD block
	733: "TX", // Austin inside the Oklahoma block
}

// ExpectedState returns the state abbreviation a ZIP code's prefix implies,
// or "" when the prefix is outside the table. Deterministic for every
// 5-digit input.
func ExpectedState(zip string) string {
	if len(zip) < 3 {
		return ""
	}
	prefix, err := strconv.Atoi(zip[:3])
	if err != nil {
		return ""
	}
	if state, ok := prefixExceptions[prefix]; ok {
		return state
	}
	for _, r := range prefixRanges {
		if prefix >= r.lo && prefix <= r.hi {
			return r.state
		}
	}
	return ""
}
