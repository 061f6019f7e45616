package main

import (
	"github.com/spf13/cobra"

	"github.com/basedlsg/Nemo-Time-sub000/internal/ingest"
	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

var (
	inspectProvince string
	inspectAsset    string
	inspectDocClass string
	inspectChunks   int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <path|url>",
	Short: "Show the metadata, completeness, key terms and chunks derived from a source without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ext, err := newExtractor()
		if err != nil {
			return err
		}
		p, err := newPipeline(nil, ext)
		if err != nil {
			return err
		}

		report, err := p.Inspect(cmd.Context(), model.Source{
			Location: args[0],
			Hints:    model.Hints{Province: inspectProvince, Asset: inspectAsset, DocClass: inspectDocClass},
		})
		if err != nil {
			return err
		}

		total := len(report.Chunks)
		if inspectChunks >= 0 && total > inspectChunks {
			report.Chunks = report.Chunks[:inspectChunks]
		}
		return printJSON(cmd.OutOrStdout(), struct {
			Source     string `json:"source"`
			ChunkTotal int    `json:"chunk_total"`
			ingest.Report
		}{Source: args[0], ChunkTotal: total, Report: report})
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectProvince, "province", "", "province hint")
	inspectCmd.Flags().StringVar(&inspectAsset, "asset", "", "asset hint")
	inspectCmd.Flags().StringVar(&inspectDocClass, "doc-class", "", "document class hint")
	inspectCmd.Flags().IntVar(&inspectChunks, "chunks", 3, "number of chunks to preview (-1 for all)")
	rootCmd.AddCommand(inspectCmd)
}
