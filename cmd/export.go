package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basedlsg/Nemo-Time-sub000/internal/config"
	"github.com/basedlsg/Nemo-Time-sub000/internal/export"
	"github.com/basedlsg/Nemo-Time-sub000/internal/store"
)

var (
	exportOut      string
	exportProvince string
	exportAsset    string
	exportDocClass string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the metadata of ingested documents to an XLSX spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeExport); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := export.ExportStore(ctx, st, store.DocumentFilter{
			Province: exportProvince,
			Asset:    exportAsset,
			DocClass: exportDocClass,
		}, exportOut)
		if err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("path", exportOut), zap.Int("documents", n))
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d documents to %s\n", n, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "documents.xlsx", "output XLSX path")
	exportCmd.Flags().StringVar(&exportProvince, "province", "", "only documents for this province")
	exportCmd.Flags().StringVar(&exportAsset, "asset", "", "only documents for this asset type")
	exportCmd.Flags().StringVar(&exportDocClass, "doc-class", "", "only documents of this class")
	rootCmd.AddCommand(exportCmd)
}
