package validate

import (
	"regexp"
	"strconv"
	"strings"
)

const seasonsPerYear = 4

// season order within a calendar year.
var seasons = map[string]int{
	"W": 0, "WI": 0, "WINTER": 0,
	"S": 1, "SP": 1, "SPRING": 1, "BAHAR": 1,
	"SU": 2, "SUMMER": 2, "YAZ": 2,
	"F": 3, "FA": 3, "FALL": 3, "AUTUMN": 3, "GÜZ": 3, "GUZ": 3,
}

var (
	compactTerm  = regexp.MustCompile(`^(\d{4})\s*([A-Z]{1,2})$`)
	yearSeason   = regexp.MustCompile(`^(\d{4})\s+(\p{L}+)$`)
	seasonYear   = regexp.MustCompile(`^(\p{L}+)\s+(\d{4})$`)
	academicTerm = regexp.MustCompile(`^(\d{4})\s*[-/]\s*(?:\d{2}|\d{4})\s+(\p{L}+)$`)
	termAcademic = regexp.MustCompile(`^(\p{L}+)\s+(\d{4})\s*[-/]\s*(?:\d{2}|\d{4})$`)
)

// termKey returns a sortable key for a term label such as "2023F", "Fall 2023",
// "2023 Spring" or "2023-2024 Güz". Labels in academic-year form place the fall term
// in the first year and every other season in the second. ok is false when the
// label is not recognised; such rows are not compared.
func termKey(label string) (key int, ok bool) {
	s := strings.ToUpper(strings.Join(strings.Fields(label), " "))
	if s == "" {
		return 0, false
	}
	var yearText, season string
	academic := false
	if m := compactTerm.FindStringSubmatch(s); m != nil {
		yearText, season = m[1], m[2]
	} else if m := yearSeason.FindStringSubmatch(s); m != nil {
		yearText, season = m[1], m[2]
	} else if m := seasonYear.FindStringSubmatch(s); m != nil {
		season, yearText = m[1], m[2]
	} else if m := academicTerm.FindStringSubmatch(s); m != nil {
		yearText, season, academic = m[1], m[2], true
	} else if m := termAcademic.FindStringSubmatch(s); m != nil {
		season, yearText, academic = m[1], m[2], true
	} else {
		return 0, false
	}
	order, known := seasons[season]
	if !known {
		return 0, false
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return 0, false
	}
	if academic && order != seasons["FALL"] {
		year++
	}
	return year*seasonsPerYear + order, true
}
