package address

import (
	"regexp"
	"strings"
)

// Rewrite chain for Taiwan street addresses. The output is used both as the
// Nominatim query and as the uniqueness key in the addresses table, so the
// same input must always produce the same output.

var (
	postalRe = regexp.MustCompile(`^\d{3}(?:\d{2,3})?`)

	// Unit suffixes that Nominatim cannot resolve: floors (5樓, B1, 12F),
	// basement levels, sub-numbers (之3, -2) and rooms.
	unitRe = regexp.MustCompile(`(?:之\d+|-\d+|(?:\d+|B\d*|地下\d*)樓(?:之\d+)?|\d+[Ff]|B\d+|\d+室)$`)

	sectionRe = regexp.MustCompile(`([1-9])段`)
)

// Shorthand prefixes people type instead of the official county/city name.
// Longest keys are checked first, so 台北縣 wins over 北市.
var cityAliases = []struct{ from, to string }{
	{"台北縣", "新北市"},
	{"桃園縣", "桃園市"},
	{"北市", "台北市"},
	{"新北", "新北市"},
	{"桃市", "桃園市"},
	{"中市", "台中市"},
	{"南市", "台南市"},
	{"高市", "高雄市"},
}

var sectionNumerals = map[string]string{
	"1": "一", "2": "二", "3": "三", "4": "四", "5": "五",
	"6": "六", "7": "七", "8": "八", "9": "九",
}

// Normalize applies the full rewrite chain: width folding, whitespace
// removal, 臺→台, postal-code strip, city aliases, unit-suffix strip, and
// Chinese numerals for road sections (OSM names roads 忠孝東路四段, not
// 忠孝東路4段).
func Normalize(raw string) string {
	s := foldWidth(raw)
	s = removeSpaces(s)
	s = strings.ReplaceAll(s, "臺", "台")
	s = postalRe.ReplaceAllString(s, "")
	s = applyCityAliases(s)
	s = stripUnits(s)
	s = sectionRe.ReplaceAllStringFunc(s, func(m string) string {
		return sectionNumerals[strings.TrimSuffix(m, "段")] + "段"
	})

	return s
}

// foldWidth maps full-width digits, letters and separators to their ASCII
// counterparts.
func foldWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return r - '０' + '0'
		case r >= 'Ａ' && r <= 'Ｚ':
			return r - 'Ａ' + 'A'
		case r >= 'ａ' && r <= 'ｚ':
			return r - 'ａ' + 'a'
		case r == '　':
			return ' '
		case r == '，':
			return ','
		case r == '－':
			return '-'
		}
		return r
	}, s)
}

// removeSpaces drops all whitespace. Han addresses carry no meaningful
// spaces, and "台北市 大安區" must key the same as "台北市大安區".
func removeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
}

func applyCityAliases(s string) string {
	for _, alias := range cityAliases {
		if strings.HasPrefix(s, alias.from) && !strings.HasPrefix(s, alias.to) {
			return alias.to + strings.TrimPrefix(s, alias.from)
		}
	}
	return s
}

// stripUnits removes unit suffixes repeatedly: 93號5樓之2 loses 之2, then 5樓.
func stripUnits(s string) string {
	for {
		stripped := unitRe.ReplaceAllString(s, "")
		if stripped == s {
			return s
		}
		s = stripped
	}
}
