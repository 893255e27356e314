package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ahmedelsayed5113/sells-project-1/config"
	"github.com/ahmedelsayed5113/sells-project-1/utils"
)

const userAgent = "Mozilla/5.0"

// Option is one entry of an upstream filter list (compounds, developers).
type Option struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
}

// Filters is the per-city filter payload: the compounds and developers the
// catalog currently knows about.
type Filters struct {
	Compound  []Option `json:"Compound"`
	Developer []Option `json:"Developer"`
}

// PayPlan is one upstream payment plan entry.
type PayPlan struct {
	DownPayment float64 `json:"PayPlanDownPayment"`
	Instalment  int64   `json:"PayPlanInstalment"`
}

// UnitDetail is one per-unit entry in a compound detail payload.
type UnitDetail struct {
	ID           int64    `json:"DetailId"`
	Bedrooms     *int64   `json:"DetailBedRooms"`
	BuiltUpArea  *float64 `json:"DetailBuiltUpArea"`
	TotalPrice   *float64 `json:"DetailUnitTotalPrice"`
	TotalPriceTo *float64 `json:"DetailUnitTotalPriceTo"`
	CashFrom     *float64 `json:"DetailUnitTotalCashFrom"`
	CashTo       *float64 `json:"DetailUnitTotalCashTo"`
	SubType      *string  `json:"DetailSubType"`
	TypeID       *int64   `json:"DetailTypeId"`
	Outdoor      *bool    `json:"DetailOutdoor"`
}

// CompoundData is the compound/phase-level detail payload.
type CompoundData struct {
	PayPlans     []PayPlan               `json:"DataPayPlans"`
	Finishing    map[string]string       `json:"DataFinishing"`
	Details      map[string][]UnitDetail `json:"DataDetails"`
	PhaseName    *string                 `json:"DataPhas"`
	PhaseID      *int64                  `json:"DataPhasId"`
	DeliveryFrom *int64                  `json:"DataPhasDeliveryFrom"`
	DeliveryTo   *int64                  `json:"DataPhasDeliveryTo"`
	Maintenance  *float64                `json:"DataPhasMaintenance"`
	ClubFees     *float64                `json:"DataPhasClubFees"`
	ParkingFees  *float64                `json:"DataPhasParkingFees"`
	CashDiscount *float64                `json:"DataPhasCashDiscount"`
	CityID       *int64                  `json:"DataCityId"`
	Status       *int64                  `json:"DataStatus"`
}

// envelope is the common upstream response wrapper.
type envelope struct {
	Error bool            `json:"error"`
	Data  json.RawMessage `json:"data"`
}

type dataResult struct {
	Results []json.RawMessage `json:"results"`
}

// Client talks to the upstream catalog API. Every call carries its own
// timeout budget; callers treat failures as "no data", never as fatal.
type Client struct {
	cfg    *config.Config
	logger *utils.Logger
	http   *http.Client
}

// New creates a catalog Client from the app config.
func New(cfg *config.Config, logger *utils.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
		http:   &http.Client{},
	}
}

// get performs one upstream GET with the given timeout, unwraps the
// {error, data} envelope and decodes data into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.CatalogBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Authorization", "Bearer "+c.cfg.CatalogToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog: %s: unexpected status %d", path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("catalog: %s: decode: %w", path, err)
	}
	if env.Error {
		return fmt.Errorf("catalog: %s: upstream reported error", path)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("catalog: %s: decode data: %w", path, err)
	}
	return nil
}

// FetchFilters loads the compound and developer lists for one city.
func (c *Client) FetchFilters(ctx context.Context, cityID int64) (*Filters, error) {
	params := url.Values{}
	params.Set("SectionId", "1")
	params.Set("CityId", strconv.FormatInt(cityID, 10))

	var filters Filters
	timeout := time.Duration(c.cfg.FilterTimeoutSec) * time.Second
	if err := c.get(ctx, "/data/filter", params, timeout, &filters); err != nil {
		return nil, err
	}
	return &filters, nil
}

func dataParams(compoundID, devID, cityID int64) url.Values {
	params := url.Values{}
	params.Set("CompoundId", strconv.FormatInt(compoundID, 10))
	params.Set("DeveloperId", strconv.FormatInt(devID, 10))
	params.Set("SectionId", "1")
	params.Set("CityId", strconv.FormatInt(cityID, 10))
	params.Set("Currency", "1")
	params.Set("ViewAll", "true")
	return params
}

// FindDeveloper probes the developer list until one returns data for the
// compound. Each probe gets a short timeout and the whole scan a wall-clock
// budget; false means no match within budget.
func (c *Client) FindDeveloper(ctx context.Context, compoundID int64, developers []Option, cityID int64) (int64, bool) {
	deadline := time.Now().Add(time.Duration(c.cfg.ProbeBudgetSec) * time.Second)
	probeTimeout := time.Duration(c.cfg.ProbeTimeoutSec) * time.Second

	for _, dev := range developers {
		if time.Now().After(deadline) {
			return 0, false
		}
		var res dataResult
		if err := c.get(ctx, "/data", dataParams(compoundID, dev.Value, cityID), probeTimeout, &res); err != nil {
			continue
		}
		if len(res.Results) > 0 {
			return dev.Value, true
		}
	}
	return 0, false
}

// FetchCompoundDetails loads the first detail payload for a compound.
// A nil result with nil error means the upstream had nothing for it.
func (c *Client) FetchCompoundDetails(ctx context.Context, compoundID, devID, cityID int64) (*CompoundData, error) {
	var res dataResult
	timeout := time.Duration(c.cfg.DetailTimeoutSec) * time.Second
	if err := c.get(ctx, "/data", dataParams(compoundID, devID, cityID), timeout, &res); err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, nil
	}

	var data CompoundData
	if err := json.Unmarshal(res.Results[0], &data); err != nil {
		return nil, fmt.Errorf("catalog: decode compound %d: %w", compoundID, err)
	}
	return &data, nil
}
