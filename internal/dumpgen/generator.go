// Package dumpgen writes synthetic pre-decoded pump dumps for exercising the
// importer end to end.
package dumpgen

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pdmimport/internal/domain/model"
	"github.com/okian/pdmimport/pkg/logger"
)

// ErrInvalidConfig is returned for unusable generator settings.
var ErrInvalidConfig = errors.New("invalid generator config")

const (
	randomFloatDivisor = 1000000
	filePermission     = 0o600

	bgMin        = 40
	bgRange      = 360
	bolusMaxTick = 400 // units of 0.05
	carbMax      = 120
)

// weighted category pool; glucose readings dominate a real history.
var imported = []model.Category{
	model.CategoryBloodGlucose, model.CategoryBloodGlucose, model.CategoryBloodGlucose,
	model.CategoryBolus, model.CategoryBolus,
	model.CategoryCarb,
	model.CategoryActivate,
	model.CategoryDeactivate,
	model.CategoryDownload,
}

var noise = []model.Category{
	model.CategoryBasalRate,
	model.CategorySuggestedCalc,
	model.CategoryTerminateBolus,
	model.CategoryPumpAlarm,
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// Generate writes cfg.NumRecords records to cfg.OutputFile in timestamp order.
func Generate(ctx context.Context, cfg *Config) (*Stats, error) {
	if cfg.NumRecords <= 0 || cfg.Interval <= 0 || cfg.OutputFile == "" {
		return nil, fmt.Errorf("%w: need records > 0, interval > 0 and an output file", ErrInvalidConfig)
	}

	f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create dump file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	stats := &Stats{ByCategory: make(map[string]int), First: cfg.Start.UTC()}
	started := time.Now()

	for i := 0; i < cfg.NumRecords; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		at := cfg.Start.Add(time.Duration(i) * cfg.Interval).UTC()
		c := pick(cfg.Ignored)
		if err := enc.Encode(line{RecordType: string(c), Record: generateRecord(c, i, at)}); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
		stats.Records++
		stats.ByCategory[string(c)]++
		stats.Last = at
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush dump file: %w", err)
	}
	stats.Duration = time.Since(started)

	logger.Get().Info(ctx, "generated dump",
		logger.String("file", cfg.OutputFile),
		logger.Int("records", stats.Records),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func pick(withNoise bool) model.Category {
	if withNoise && randomInt(4) == 0 {
		return noise[randomInt(len(noise))]
	}
	return imported[randomInt(len(imported))]
}

// generateRecord builds the fields the pump reader emits for category c,
// including the bookkeeping fields the importer strips.
func generateRecord(c model.Category, index int, at time.Time) map[string]any {
	r := map[string]any{
		model.FieldTimestamp:   at.Format(time.RFC3339),
		"logIndex":             index,
		"logType":              1,
		"error":                0,
		"secondsSincePowerUp":  index * 60,
		"historyLogRecordType": c,
		"flags":                0,
	}
	switch c {
	case model.CategoryBloodGlucose:
		r[model.FieldBGReading] = bgMin + randomInt(bgRange)
		r["errorCode"] = 0
		r["userTag1"] = ""
		r["userTag2"] = ""
		r["bgFlags"] = 0
	case model.CategoryBolus:
		r[model.FieldUnits] = float64(1+randomInt(bolusMaxTick)) * 0.05
		r["calculationRecordOffset"] = index
		r["immediateDurationSeconds"] = 0
		extended := getRandomFloat() < 0.2
		r["extended"] = extended
		r[model.FieldExtendedDurationMinutes] = 0
		if extended {
			r[model.FieldExtendedDurationMinutes] = 30 * (1 + randomInt(4))
		}
	case model.CategoryCarb:
		r["carbs"] = 5 + randomInt(carbMax)
		r["wasPreset"] = false
		r["presetType"] = 0
	case model.CategoryActivate:
		r["lotNumber"] = randomInt(1 << 20)
		r["serialNumber"] = uuid.NewString()
		r["podVersion"] = "2.10.1"
		r["interlockVersion"] = "1.0"
	case model.CategoryBasalRate:
		r["rate"] = float64(randomInt(40)) * 0.05
	}
	return r
}
