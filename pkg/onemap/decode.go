package onemap

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sgtransit/stops-cli/internal/fetcher"
	"github.com/sgtransit/stops-cli/internal/model"
)

type searchResponse struct {
	SearchResults []rawResult `json:"SearchResults"`
}

type rawResult struct {
	SearchVal  string    `json:"SEARCHVAL"`
	X          flexFloat `json:"X"`
	Y          flexFloat `json:"Y"`
	Category   string    `json:"CATEGORY"`
	PostalCode string    `json:"POSTALCODE"`
}

// flexFloat accepts a JSON number or a numeric string. OneMap sends
// coordinates as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return eris.Wrap(err, "coordinate")
		}
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "coordinate %q is not numeric", s)
	}
	*f = flexFloat(v)
	return nil
}

// ValidatePage reports whether body is a well-formed search page. It is
// meant for response caches, so that malformed pages are never stored.
func ValidatePage(body []byte) error {
	_, err := decodePage(bytes.NewReader(body))
	return err
}

func decodePage(r io.Reader) ([]model.SearchResult, error) {
	resp, err := fetcher.DecodeJSONObject[searchResponse](r)
	if err != nil {
		return nil, eris.Wrap(ErrMalformedPage, err.Error())
	}
	if len(resp.SearchResults) == 0 {
		return nil, eris.Wrap(ErrMalformedPage, "empty SearchResults")
	}

	out := make([]model.SearchResult, len(resp.SearchResults))
	for i, r := range resp.SearchResults {
		out[i] = model.SearchResult{
			SearchVal:  r.SearchVal,
			X:          float64(r.X),
			Y:          float64(r.Y),
			Category:   r.Category,
			PostalCode: r.PostalCode,
		}
	}
	return out, nil
}
