// Package catalog holds the built-in statistical catalog: the composite
// indicators the index is computed from, the raw registry variable codes
// behind them, and the grouped-frequency decompositions used to repair
// suppressed point estimates.
package catalog

// Indicator describes one composite indicator: a set of numerator variable
// codes summed per area, divided by a set of denominator codes summed per
// area. A nil Denominator means the constant 1, i.e. the numerator is used
// directly. Inverse indicators measure advantage (income, housing value), so
// their compiled value is sign-flipped to keep "higher = more vulnerable".
type Indicator struct {
	Name        string
	Numerator   []string
	Denominator []string
	Inverse     bool
	Description string
}

// Ratio reports whether the indicator is a ratio (has a denominator) rather
// than a raw value.
func (i Indicator) Ratio() bool {
	return len(i.Denominator) > 0
}

// Codes returns the numerator and denominator variable codes of the
// indicator, in order.
func (i Indicator) Codes() []string {
	codes := make([]string, 0, len(i.Numerator)+len(i.Denominator))
	codes = append(codes, i.Numerator...)
	codes = append(codes, i.Denominator...)
	return codes
}

// DefaultInverse lists the indicator names that are inverted by default:
// higher raw values mean lower vulnerability.
func DefaultInverse() []string {
	return []string{"PERCAP", "QRICH", "MDHSEVAL"}
}

// Indicators returns the built-in indicator catalog. The returned slice is a
// fresh copy; callers may modify it freely.
func Indicators() []Indicator {
	inds := []Indicator{
		{
			Name: "QAGEDEP",
			Numerator: []string{
				"B01001_026E", "B01001_003E", "B01001_020E",
				"B01001_021E", "B01001_022E", "B01001_023E", "B01001_024E",
				"B01001_025E", "B01001_027E", "B01001_044E", "B01001_045E",
				"B01001_046E", "B01001_047E", "B01001_048E", "B01001_049E",
			},
			Denominator: []string{"B01001_001E"},
			Description: "Percent of population under the age of 5 or over the age of 65",
		},
		{
			Name:        "QFEMALE",
			Numerator:   []string{"B01001_026E"},
			Denominator: []string{"B01001_001E"},
			Description: "Percent of population that is female",
		},
		{
			Name:        "MEDAGE",
			Numerator:   []string{"B01002_001E"},
			Description: "Median age",
		},
		{
			Name:        "QBLACK",
			Numerator:   []string{"B03002_004E"},
			Denominator: []string{"B03002_001E"},
			Description: "Percent of population that is non-Hispanic Black/African-American",
		},
		{
			Name:        "QNATIVE",
			Numerator:   []string{"B03002_005E"},
			Denominator: []string{"B03002_001E"},
			Description: "Percent of population that is non-Hispanic Native American",
		},
		{
			Name:        "QASIAN",
			Numerator:   []string{"B03002_006E"},
			Denominator: []string{"B03002_001E"},
			Description: "Percent of population that is non-Hispanic Asian",
		},
		{
			Name:        "QHISPC",
			Numerator:   []string{"B03002_012E"},
			Denominator: []string{"B03002_001E"},
			Description: "Percent of population that is Hispanic",
		},
		{
			Name:        "QFAM",
			Numerator:   []string{"B11005_005E"},
			Denominator: []string{"B11005_003E"},
			Description: "Percent of families where only one spouse is present in the household",
		},
		{
			Name:        "PPUNIT",
			Numerator:   []string{"B25010_001E"},
			Description: "People per unit, or average household size",
		},
		{
			Name:        "QFHH",
			Numerator:   []string{"B11001_006E"},
			Denominator: []string{"B11001_001E"},
			Description: "Percent of households with Female householder and no spouse present",
		},
		{
			Name: "QEDLESHI",
			Numerator: []string{
				"B15003_002E", "B15003_003E", "B15003_004E",
				"B15003_005E", "B15003_006E", "B15003_007E", "B15003_008E",
				"B15003_009E", "B15003_010E", "B15003_011E", "B15003_012E",
				"B15003_013E", "B15003_014E", "B15003_015E", "B15003_016E",
			},
			Denominator: []string{"B15003_001E"},
			Description: "Percent of population over the age of 25 with less than a high school diploma (or equivalent)",
		},
		{
			Name:        "QCVLUN",
			Numerator:   []string{"B23025_005E"},
			Denominator: []string{"B23025_003E"},
			Description: "Percent of civilian population over the age of 15 that is unemployed",
		},
		{
			Name:        "QRICH",
			Numerator:   []string{"B19001_017E"},
			Denominator: []string{"B19001_001E"},
			Inverse:     true,
			Description: "Percent of households earning over $200,000 annually",
		},
		{
			Name:        "QSSBEN",
			Numerator:   []string{"B19055_002E"},
			Denominator: []string{"B19055_001E"},
			Description: "Percent of households with social security income",
		},
		{
			Name:        "PERCAP",
			Numerator:   []string{"B19301_001E"},
			Inverse:     true,
			Description: "Per capita income in the past 12 months",
		},
		{
			Name:        "QRENTER",
			Numerator:   []string{"B25003_003E"},
			Denominator: []string{"B25003_001E"},
			Description: "Percent of households that are renters",
		},
		{
			Name:        "QUNOCCHU",
			Numerator:   []string{"B25002_003E"},
			Denominator: []string{"B25002_001E"},
			Description: "Percent of housing units that are unoccupied",
		},
		{
			Name:        "QMOHO",
			Numerator:   []string{"B25024_010E"},
			Denominator: []string{"B25024_001E"},
			Description: "Percent of housing units that are mobile homes",
		},
		{
			Name:        "MDHSEVAL",
			Numerator:   []string{"B25077_001E"},
			Inverse:     true,
			Description: "Median housing value",
		},
		{
			Name:        "MDGRENT",
			Numerator:   []string{"B25064_001E"},
			Description: "Median gross rent",
		},
		{
			Name:        "QPOVTY",
			Numerator:   []string{"B17021_002E"},
			Denominator: []string{"B17021_001E"},
			Description: "Percent of population whose income in the past 12 months was below the poverty level",
		},
		{
			Name:        "QNOAUTO",
			Numerator:   []string{"B25044_003E", "B25044_010E"},
			Denominator: []string{"B25044_001E"},
			Description: "Percent of households without access to a car",
		},
		{
			Name: "QNOHLTH",
			Numerator: []string{
				"B27001_005E", "B27001_008E", "B27001_011E", "B27001_014E",
				"B27001_017E", "B27001_020E", "B27001_023E", "B27001_026E",
				"B27001_029E", "B27001_033E", "B27001_036E", "B27001_039E",
				"B27001_042E", "B27001_045E", "B27001_048E", "B27001_051E",
				"B27001_054E", "B27001_057E",
			},
			Denominator: []string{"B27001_001E"},
			Description: "Percent of population without health insurance",
		},
		{
			Name: "QESL",
			Numerator: []string{
				"B16004_007E", "B16004_008E", "B16004_012E", "B16004_013E",
				"B16004_017E", "B16004_018E", "B16004_022E", "B16004_023E",
				"B16004_029E", "B16004_030E", "B16004_034E", "B16004_035E",
				"B16004_039E", "B16004_040E", "B16004_044E", "B16004_045E",
				"B16004_051E", "B16004_052E", "B16004_056E", "B16004_057E",
				"B16004_061E", "B16004_062E", "B16004_066E", "B16004_067E",
			},
			Denominator: []string{"B16004_001E"},
			Description: `Percent of population who speaks English "not well" or "not at all"`,
		},
		{
			Name:        "QFEMLBR",
			Numerator:   []string{"C24010_038E"},
			Denominator: []string{"C24010_001E"},
			Description: "Percent of the civilian employed population over the age of 16 that is female",
		},
		{
			Name:        "QSERV",
			Numerator:   []string{"C24010_019E", "C24010_055E"},
			Denominator: []string{"C24010_001E"},
			Description: "Percent of the civilian employed population that has a service occupation",
		},
		{
			Name:        "QEXTRCT",
			Numerator:   []string{"C24010_032E", "C24010_068E"},
			Denominator: []string{"C24010_001E"},
			Description: "Percent of the civilian employed population that has a construction and extraction occupation",
		},
	}
	return inds
}

// Variables returns the de-duplicated union of all raw variable codes behind
// the given indicators, preserving first-seen order.
func Variables(inds []Indicator) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, ind := range inds {
		for _, code := range ind.Codes() {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	return codes
}
