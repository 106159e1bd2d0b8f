package favourites

import "strings"

// countryLabels maps short country codes to the display label used in
// rendered group titles.
var countryLabels = map[string]string{
	"UK": "United Kingdom",
	"GB": "United Kingdom",
	"DE": "Germany",
	"CA": "Canada",
	"US": "USA",
}

var countryNames = func() map[string]struct{} {
	set := map[string]struct{}{}
	for code, label := range countryLabels {
		set[strings.ToLower(code)] = struct{}{}
		set[strings.ToLower(label)] = struct{}{}
	}
	set["usa"] = struct{}{}
	set["united states"] = struct{}{}
	return set
}()

func isCountryName(s string) bool {
	_, ok := countryNames[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// CountryLabel renders a country value for display. Short values are
// treated as codes and expanded; anything else passes through as-is.
func CountryLabel(country string) string {
	c := strings.TrimSpace(country)
	if c == "" {
		return ""
	}
	if len(c) <= 3 {
		if label, ok := countryLabels[strings.ToUpper(c)]; ok {
			return label
		}
		return strings.ToUpper(c)
	}
	return c
}

// GroupTitle renders the group-title attribute for a pruned playlist
// entry: the country label, then the original group, joined with " - ".
// A group that merely repeats the country collapses to the label alone.
func GroupTitle(country, group string) string {
	c := CountryLabel(country)
	g := strings.TrimSpace(group)
	if c == "" {
		return g
	}
	if g == "" || strings.EqualFold(g, c) || isSameCountry(g, country) {
		return c
	}
	return c + " - " + g
}

func isSameCountry(group, country string) bool {
	if !isCountryName(group) {
		return false
	}
	return strings.EqualFold(CountryLabel(group), CountryLabel(country))
}
