package dashboard

import "strconv"

// ParseCount parses an integer out of messy dashboard cell text.
//
// Universal rule applied by every extractor: strip every character except
// digits and a leading minus sign, then integer-parse. Missing or non-numeric
// cells parse to 0, never an error; partial data must not block mismatch
// detection on the fields that are present.
//
// Examples: "12 drivers" => 12, "$-1,234" => -1234, "" => 0, "n/a" => 0.
func ParseCount(s string) int {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			b = append(b, c)
			continue
		}
		if c == '-' && len(b) == 0 {
			b = append(b, c)
		}
	}
	if len(b) == 0 || (len(b) == 1 && b[0] == '-') {
		return 0
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0
	}
	return n
}
