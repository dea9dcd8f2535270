package report

import "strconv"

const noPackage = "<none>"

// SummaryTable returns one row per package and error name with the
// number of distinct locations and the total count, preceded by a
// header row.
func (a *Aggregate) SummaryTable() [][]string {
	rows := [][]string{{"Package", "Error", "Locations", "Count"}}

	type group struct {
		pkg, errorName   string
		locations, count int
	}
	var groups []*group
	// Records are sorted by package and error name, so every group is a
	// run of adjacent records
	for _, r := range a.Records() {
		if len(groups) == 0 || groups[len(groups)-1].pkg != r.Package || groups[len(groups)-1].errorName != r.ErrorName {
			groups = append(groups, &group{pkg: r.Package, errorName: r.ErrorName})
		}
		g := groups[len(groups)-1]
		g.locations++
		g.count += r.Count
	}

	for _, g := range groups {
		pkg := g.pkg
		if pkg == "" {
			pkg = noPackage
		}
		rows = append(rows, []string{pkg, g.errorName, strconv.Itoa(g.locations), strconv.Itoa(g.count)})
	}
	return rows
}
