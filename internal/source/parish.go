package source

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const parishSuffix = "Parish"

// CanonicalParish normalizes a parish name from any source into the join key
// used by the panel: "DE SOTO", "De Soto Parish" and "De Soto Parish, Louisiana"
// all become "De Soto Parish". An empty or blank name returns "".
func CanonicalParish(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(strings.ToLower(name), ", louisiana"); i >= 0 {
		name = name[:i]
	}

	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	name = strings.Join(fields, " ")
	name = cases.Title(language.English).String(name)

	if !strings.HasSuffix(name, " "+parishSuffix) && name != parishSuffix {
		name += " " + parishSuffix
	}
	return name
}

// CanonicalParishWithAliases canonicalizes name and then applies the alias
// table. Alias keys and values are canonicalized before comparison so that
// configuration may use any spelling.
func CanonicalParishWithAliases(name string, aliases map[string]string) string {
	canon := CanonicalParish(name)
	if canon == "" || len(aliases) == 0 {
		return canon
	}
	for from, to := range aliases {
		if CanonicalParish(from) == canon {
			return CanonicalParish(to)
		}
	}
	return canon
}
