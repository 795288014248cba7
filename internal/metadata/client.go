// Package metadata is the Market-Metadata Client (C3): two HTTP calls
// against Polymarket's Gamma and CLOB REST APIs, wrapped in a resty
// client with retry-on-5xx the way 0xtitan6-polymarket-mm's exchange
// client wraps its own REST surface. Gamma serializes several market
// fields (outcomes, clobTokenIds, outcomePrices) as JSON-encoded
// strings inside the outer JSON payload; this client parses them
// transparently so callers only ever see []string/[]float64.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// RawMarket is the Gamma API's on-the-wire market shape. Several
// fields arrive as JSON-encoded strings rather than native arrays;
// Parse() decodes them.
type RawMarket struct {
	ID              string `json:"id"`
	ConditionID     string `json:"conditionId"`
	Question        string `json:"question"`
	Active          bool   `json:"active"`
	Closed          bool   `json:"closed"`
	AcceptingOrders bool   `json:"acceptingOrders"`
	NegRisk         bool   `json:"negRisk"`
	Volume          string `json:"volume"`
	Liquidity       string `json:"liquidity"`
	EndDate         string `json:"endDate"`
	Outcomes        string `json:"outcomes"`
	ClobTokenIDs    string `json:"clobTokenIds"`
	OutcomePrices   string `json:"outcomePrices"`
}

// ParsedMarket is a RawMarket with its stringified-JSON sub-fields
// decoded and its numeric fields converted.
type ParsedMarket struct {
	ID              string
	ConditionID     string
	Question        string
	Active          bool
	Closed          bool
	AcceptingOrders bool
	NegRisk         bool
	Volume          float64
	Liquidity       float64
	EndDate         time.Time
	Outcomes        []string
	TokenIDs        []string
	OutcomePrices   []float64
}

// Parse decodes a RawMarket's stringified-JSON fields. end_date is
// parsed best-effort; an unparseable or empty date leaves EndDate zero.
func (m RawMarket) Parse() ParsedMarket {
	p := ParsedMarket{
		ID:              m.ID,
		ConditionID:     m.ConditionID,
		Question:        m.Question,
		Active:          m.Active,
		Closed:          m.Closed,
		AcceptingOrders: m.AcceptingOrders,
		NegRisk:         m.NegRisk,
		Volume:          parseFloatField(m.Volume),
		Liquidity:       parseFloatField(m.Liquidity),
	}
	if m.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
			p.EndDate = t
		}
	}
	p.Outcomes = parseJSONStringArray(m.Outcomes)
	p.TokenIDs = parseJSONStringArray(m.ClobTokenIDs)
	p.OutcomePrices = parseJSONFloatArray(m.OutcomePrices)
	return p
}

func parseFloatField(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseJSONStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func parseJSONFloatArray(s string) []float64 {
	if s == "" {
		return nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(s), &raw); err == nil {
		out := make([]float64, 0, len(raw))
		for _, r := range raw {
			out = append(out, parseFloatField(r))
		}
		return out
	}
	var out []float64
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// ResolutionState is the outcome of get_market: whether the market has
// resolved, and if so, which outcome won.
type ResolutionState struct {
	Resolved bool
	Winner   string
}

type gammaToken struct {
	Winner  bool   `json:"winner"`
	Outcome string `json:"outcome"`
}

type clobMarket struct {
	Resolved bool         `json:"resolved"`
	Closed   bool         `json:"closed"`
	Winner   string       `json:"winner"`
	Tokens   []gammaToken `json:"tokens"`
	Outcomes []gammaToken `json:"outcomes"`
}

// Client is the Market-Metadata Client, issuing list_markets against
// Gamma and get_market against the CLOB markets endpoint. The two
// APIs live on different hosts, so both base URLs are kept rather
// than configuring a single resty base URL.
type Client struct {
	http         *resty.Client
	gammaBaseURL string
	clobBaseURL  string
}

// NewClient builds a Market-Metadata Client with a fixed timeout and
// retries on transport errors and 5xx responses.
func NewClient(gammaBaseURL, clobBaseURL string, timeout time.Duration, retryCount int) *Client {
	return &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(retryCount).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r.StatusCode() >= 500
			}).
			SetHeader("Accept", "application/json"),
		gammaBaseURL: gammaBaseURL,
		clobBaseURL:  clobBaseURL,
	}
}

// ListMarkets fetches active, unclosed markets above minVolume, capped
// at limit, in the order the Gamma API returns them.
func (c *Client) ListMarkets(ctx context.Context, minVolume float64, limit int) ([]ParsedMarket, error) {
	var raw []RawMarket
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"active":         "true",
			"closed":         "false",
			"volume_num_min": strconv.FormatFloat(minVolume, 'f', -1, 64),
			"limit":          strconv.Itoa(limit),
		}).
		SetResult(&raw).
		Get(c.gammaBaseURL + "/markets")
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("list markets: status %d", resp.StatusCode())
	}

	out := make([]ParsedMarket, 0, len(raw))
	for _, m := range raw {
		out = append(out, m.Parse())
	}
	return out, nil
}

// GetMarket fetches resolution state for one market by condition ID.
// A 404 is reported as an error rather than a false "not resolved",
// since the resolver must distinguish "still open" from "we lost
// track of this market."
func (c *Client) GetMarket(ctx context.Context, conditionID string) (ResolutionState, error) {
	var raw clobMarket
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&raw).
		Get(fmt.Sprintf("%s/markets/%s", c.clobBaseURL, conditionID))
	if err != nil {
		return ResolutionState{}, fmt.Errorf("get market %s: %w", conditionID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ResolutionState{}, fmt.Errorf("get market %s: not found", conditionID)
	}
	if resp.StatusCode() != http.StatusOK {
		return ResolutionState{}, fmt.Errorf("get market %s: status %d", conditionID, resp.StatusCode())
	}

	resolved := raw.Resolved || raw.Closed
	if !resolved {
		return ResolutionState{Resolved: false}, nil
	}

	return ResolutionState{Resolved: true, Winner: extractWinner(raw)}, nil
}

// extractWinner checks, in order, the direct winner field, the tokens
// array's winner flag, and the outcomes array's winner flag — Gamma
// and the CLOB markets endpoint don't agree on where this lives.
func extractWinner(m clobMarket) string {
	if m.Winner != "" {
		return m.Winner
	}
	for _, tok := range m.Tokens {
		if tok.Winner && tok.Outcome != "" {
			return tok.Outcome
		}
	}
	for _, o := range m.Outcomes {
		if o.Winner && o.Outcome != "" {
			return o.Outcome
		}
	}
	return ""
}
