package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basedlsg/Nemo-Time-sub000/internal/config"
	"github.com/basedlsg/Nemo-Time-sub000/internal/fetcher"
	"github.com/basedlsg/Nemo-Time-sub000/internal/ingest"
	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

var (
	ingestSources       string
	ingestProvince      string
	ingestAsset         string
	ingestDocClass      string
	ingestRetryFailures bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths or urls...]",
	Short: "Ingest local text/PDF files or URLs into the document index",
	Example: `  nemo ingest notices/gd-solar.txt https://www.nea.gov.cn/2024-01/05/c_1310759.htm --province gd
  nemo ingest --sources sources.xlsx
  nemo ingest --retry-failures`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(config.ModeIngest); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ext, err := newExtractor()
		if err != nil {
			return err
		}
		p, err := newPipeline(st, ext)
		if err != nil {
			return err
		}

		var results []model.IngestResult
		if ingestRetryFailures {
			results, err = p.RetryFailures(ctx)
		} else {
			hints := model.Hints{Province: ingestProvince, Asset: ingestAsset, DocClass: ingestDocClass}
			sources, serr := collectSources(ctx, args, ingestSources, hints)
			if serr != nil {
				return serr
			}
			if len(sources) == 0 {
				return eris.New("ingest: no sources given (pass paths, urls or --sources)")
			}
			results, err = p.IngestAll(ctx, sources)
		}
		if err != nil {
			return err
		}

		summary := ingest.Summarize(results)
		zap.L().Info("ingest complete",
			zap.Int("ingested", summary[model.IngestStatusIngested]),
			zap.Int("duplicate", summary[model.IngestStatusDuplicate]),
			zap.Int("skipped", summary[model.IngestStatusSkipped]),
			zap.Int("failed", summary[model.IngestStatusFailed]),
		)
		return printJSON(cmd.OutOrStdout(), results)
	},
}

// collectSources merges positional locations with a source list file.
// Flag hints fill in whatever a source list row leaves empty.
func collectSources(ctx context.Context, args []string, listPath string, hints model.Hints) ([]model.Source, error) {
	sources := make([]model.Source, 0, len(args))
	for _, a := range args {
		sources = append(sources, model.Source{Location: a, Hints: hints})
	}
	if listPath == "" {
		return sources, nil
	}

	listed, err := fetcher.ReadSourceList(ctx, listPath)
	if err != nil {
		return nil, err
	}
	for _, s := range listed {
		if s.Province == "" {
			s.Province = hints.Province
		}
		if s.Asset == "" {
			s.Asset = hints.Asset
		}
		if s.DocClass == "" {
			s.DocClass = hints.DocClass
		}
		sources = append(sources, s)
	}
	return sources, nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSources, "sources", "", "CSV or XLSX file listing sources (location, province, asset, doc_class)")
	ingestCmd.Flags().StringVar(&ingestProvince, "province", "", "province hint (gd, sd, nm)")
	ingestCmd.Flags().StringVar(&ingestAsset, "asset", "", "asset hint (solar, coal, wind)")
	ingestCmd.Flags().StringVar(&ingestDocClass, "doc-class", "", "document class hint (grid)")
	ingestCmd.Flags().BoolVar(&ingestRetryFailures, "retry-failures", false, "re-ingest retryable entries from the failure queue instead")
	rootCmd.AddCommand(ingestCmd)
}
