package pipeline

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LoadBankNames reads one bank name per line. Blank lines and lines starting
// with # are skipped.
func LoadBankNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open bank names %s", path)
	}
	defer f.Close() //nolint:errcheck

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "pipeline: read bank names %s", path)
	}
	return names, nil
}

// BankFilter matches search values that begin with a bank name, such as
// "DBS BANK ... MRT STATION" branch listings. Not safe for concurrent use.
type BankFilter struct {
	upper    cases.Caser
	prefixes []string
}

// NewBankFilter builds a filter for names. Matching is case-insensitive.
func NewBankFilter(names []string) *BankFilter {
	f := &BankFilter{upper: cases.Upper(language.Und)}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		f.prefixes = append(f.prefixes, f.upper.String(n)+" ")
	}
	return f
}

// Match reports whether name starts with a bank name followed by a space.
func (f *BankFilter) Match(name string) bool {
	upper := f.upper.String(name)
	for _, p := range f.prefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// Len returns the number of bank names loaded.
func (f *BankFilter) Len() int {
	return len(f.prefixes)
}
