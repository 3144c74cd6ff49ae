package lzblock

import "fmt"

// DumpResults renders a result stream in a human-readable form, literals
// verbatim and matches as <Length,Distance> symbols. It exists for tests
// and debugging, not for consumption by anything downstream.
func DumpResults(dst []byte, results []MatchResult) []byte {
	for _, r := range results {
		if r.IsMatch() {
			dst = append(dst, []byte(fmt.Sprintf("<%d,%d>", r.Length, r.Distance))...)
		} else {
			dst = append(dst, r.Lit)
		}
	}
	return dst
}
