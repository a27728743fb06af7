package scraper

import (
	"sort"
	"strings"
)

// categoryEndpoints maps each supported certification category to its
// listing page on the DOA search site.
var categoryEndpoints = map[string]string{
	"pf":      "mygap_pf_list.php",
	"am":      "mygap_am_list.php",
	"tanaman": "mygap_tanaman_list.php",
	"tbm":     "mygap_tbm_list.php",
}

// IsSupported reports whether the category code belongs to the fixed
// supported set. Matching is case-insensitive.
func IsSupported(category string) bool {
	_, ok := categoryEndpoints[strings.ToLower(category)]
	return ok
}

// Categories returns the supported category codes in stable order.
func Categories() []string {
	out := make([]string, 0, len(categoryEndpoints))
	for c := range categoryEndpoints {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
