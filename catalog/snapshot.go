package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/ahmedelsayed5113/sells-project-1/config"
	"github.com/ahmedelsayed5113/sells-project-1/models"
	"github.com/ahmedelsayed5113/sells-project-1/utils"
)

// outcome classifies one compound fetch. Distinguishing "legitimately empty"
// from "fetch failed" keeps the coverage diagnostics honest.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeEmpty
	outcomeFailed
)

// Fetcher walks the configured places against the upstream catalog and
// assembles the full fresh snapshot for one cycle. Individual compound
// failures shrink the snapshot; they never abort it.
type Fetcher struct {
	cfg    *config.Config
	client *Client
	logger *utils.Logger
	retry  *utils.RetryConfig

	mu       sync.Mutex
	units    []*models.Unit
	outcomes map[outcome]int
}

// NewFetcher creates a snapshot Fetcher over the given catalog client.
func NewFetcher(cfg *config.Config, client *Client, logger *utils.Logger) *Fetcher {
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &Fetcher{
		cfg:    cfg,
		client: client,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: retries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Snapshot fetches the entire tracked universe: for every place, load the
// compound/developer filters, then resolve and flatten each compound with
// bounded concurrency. The only fatal error is a cancelled context.
func (f *Fetcher) Snapshot(ctx context.Context) ([]*models.Unit, error) {
	now := time.Now()

	f.mu.Lock()
	f.units = nil
	f.outcomes = make(map[outcome]int)
	f.mu.Unlock()

	pool := utils.NewWorkerPool(f.cfg.MaxConcurrency, f.cfg.RateLimitMs)

	for _, place := range f.cfg.Places {
		if ctx.Err() != nil {
			break
		}
		f.logger.Info("[catalog] %s...", place.Name)

		var filters *Filters
		err := f.retry.Do("fetch filters for "+place.Name, func() error {
			var ferr error
			filters, ferr = f.client.FetchFilters(ctx, place.ID)
			return ferr
		})
		if err != nil {
			f.logger.Error("[catalog] filters for %s failed: %v", place.Name, err)
			continue
		}
		if len(filters.Compound) == 0 {
			f.logger.Warn("[catalog] no compounds found for %s", place.Name)
			continue
		}

		devLookup := make(map[int64]string, len(filters.Developer))
		for _, dev := range filters.Developer {
			devLookup[dev.Value] = dev.Label
		}

		place := place
		developers := filters.Developer
		for _, compound := range filters.Compound {
			compound := compound
			pool.Submit(func() {
				f.fetchCompound(ctx, place, compound, developers, devLookup, now)
			})
		}
	}

	pool.Wait()

	f.mu.Lock()
	units := f.units
	ok, empty, failed := f.outcomes[outcomeOK], f.outcomes[outcomeEmpty], f.outcomes[outcomeFailed]
	f.mu.Unlock()

	f.logger.Info("[catalog] snapshot assembled: %d units (%d compounds ok, %d empty, %d failed)",
		len(units), ok, empty, failed)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

func (f *Fetcher) fetchCompound(ctx context.Context, place config.Place, compound Option, developers []Option, devLookup map[int64]string, now time.Time) {
	devID, found := f.client.FindDeveloper(ctx, compound.Value, developers, place.ID)
	if !found {
		f.logger.Debug("[catalog] %s: no developer match", compound.Label)
		f.record(nil, outcomeEmpty)
		return
	}

	data, err := f.client.FetchCompoundDetails(ctx, compound.Value, devID, place.ID)
	if err != nil {
		f.logger.Warn("[catalog] %s: detail fetch failed: %v", compound.Label, err)
		f.record(nil, outcomeFailed)
		return
	}
	if data == nil {
		f.logger.Debug("[catalog] %s: no details", compound.Label)
		f.record(nil, outcomeEmpty)
		return
	}

	devName := devLookup[devID]
	if devName == "" {
		devName = "Unknown"
	}
	info := CompoundInfo{
		ID:      compound.Value,
		Name:    compound.Label,
		DevID:   devID,
		DevName: devName,
	}

	units := Flatten(place, info, data, now)
	f.logger.Info("[catalog] %s: %d units", compound.Label, len(units))
	f.record(units, outcomeOK)
}

func (f *Fetcher) record(units []*models.Unit, o outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units = append(f.units, units...)
	f.outcomes[o]++
}
