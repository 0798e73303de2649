package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"insight_server/adapter/out/persistence"
	"insight_server/config"
	"insight_server/core/domain"
	"insight_server/core/port/in"
	"insight_server/core/service/insight"

	"github.com/goccy/go-json"
)

// RunAnalyze analyzes a JSON MailBatch file with the configured analysis
// defaults and writes the per-contact map to w. The whole file is analyzed
// unless periodDays > 0 restricts it to the days before now.
func RunAnalyze(ctx context.Context, cfg *config.Config, inputPath string, periodDays int, w io.Writer) error {
	var (
		data []byte
		err  error
	)
	if inputPath == "" || inputPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inputPath)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var batch domain.MailBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("decode mail batch: %w", err)
	}

	store := persistence.NewMemoryStore()
	svc := insight.NewService(insight.ServiceConfig{
		MailboxID: cfg.MailboxID,
		Snapshots: store,
		Settings:  store.Settings(),
		Clock:     insight.NewBusinessHours(cfg.Location()),
		Defaults:  &cfg.Analysis,
	})

	settings := cfg.Analysis
	settings.AnalysisPeriod = domain.AllTime
	if periodDays > 0 {
		settings.AnalysisPeriod = periodDays
	}
	snap, err := svc.AnalyzeBatch(ctx, &in.AnalyzeRequest{Batch: batch, Settings: &settings})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(snap.Contacts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
