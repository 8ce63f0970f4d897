package catalog

import "fmt"

// Bracket is one ordered bin of a grouped-frequency distribution. Codes holds
// the registry variables whose counts make up the bin; more than one code
// means sibling publications that must be combined (the male and female halves
// of the age distribution). High is exclusive and equals the next bracket's
// Low, so High-Low is the bin width.
type Bracket struct {
	Codes []string
	Low   float64
	High  float64
}

// GroupedFrequency describes the published bracket decomposition of a point
// estimate: the point variable it repairs, the total-count variable, and the
// ordered brackets.
type GroupedFrequency struct {
	Point    string
	Total    string
	Brackets []Bracket
}

// Variables returns the total-count code plus every bracket code, in order.
func (g GroupedFrequency) Variables() []string {
	codes := []string{g.Total}
	for _, b := range g.Brackets {
		codes = append(codes, b.Codes...)
	}
	return codes
}

// seqCodes builds sequential registry estimate codes table_NNNE for the
// inclusive index range [from, to].
func seqCodes(table string, from, to int) []string {
	codes := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		codes = append(codes, fmt.Sprintf("%s_%03dE", table, i))
	}
	return codes
}

// bracketize zips sequential single-code brackets with their bin edges.
// edges has one more entry than codes.
func bracketize(codes []string, edges []float64) []Bracket {
	brackets := make([]Bracket, len(codes))
	for i, code := range codes {
		brackets[i] = Bracket{Codes: []string{code}, Low: edges[i], High: edges[i+1]}
	}
	return brackets
}

// GroupedFrequencies returns the bracket decompositions available for hole
// interpolation, keyed by the point-estimate variable they repair. Three
// point estimates are repairable: median gross rent (B25063 brackets),
// median housing value (B25075 brackets), and median age (the B01001 male
// and female age pyramids combined).
func GroupedFrequencies() map[string]GroupedFrequency {
	rent := GroupedFrequency{
		Point: "B25064_001E",
		Total: "B25063_002E",
		Brackets: bracketize(
			seqCodes("B25063", 3, 26),
			[]float64{
				0, 100, 150, 200, 250, 300, 350, 400, 450, 500, 550, 600,
				650, 700, 750, 800, 900, 1000, 1250, 1500, 2000, 2500,
				3000, 3500, 3501,
			},
		),
	}

	housing := GroupedFrequency{
		Point: "B25077_001E",
		Total: "B25075_001E",
		Brackets: bracketize(
			seqCodes("B25075", 2, 27),
			[]float64{
				0, 10000, 15000, 20000, 25000, 30000, 35000, 40000, 50000,
				60000, 70000, 80000, 90000, 100000, 125000, 150000, 175000,
				200000, 250000, 300000, 400000, 500000, 750000, 1000000,
				1500000, 2000000, 2000001,
			},
		),
	}

	// Age bands are published separately per sex; each bracket carries the
	// male and female codes for the same band.
	male := seqCodes("B01001", 3, 25)
	female := seqCodes("B01001", 27, 49)
	ageEdges := []float64{0, 5, 10, 15, 18, 20, 21, 22, 25, 30, 35, 40, 45, 50, 55, 60, 62, 65, 67, 70, 75, 80, 85, 86}
	ageBrackets := make([]Bracket, len(male))
	for i := range male {
		ageBrackets[i] = Bracket{
			Codes: []string{male[i], female[i]},
			Low:   ageEdges[i],
			High:  ageEdges[i+1],
		}
	}
	age := GroupedFrequency{
		Point:    "B01002_001E",
		Total:    "B01001_001E",
		Brackets: ageBrackets,
	}

	return map[string]GroupedFrequency{
		rent.Point:    rent,
		housing.Point: housing,
		age.Point:     age,
	}
}
