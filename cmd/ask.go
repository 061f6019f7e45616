package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/basedlsg/Nemo-Time-sub000/internal/config"
	"github.com/basedlsg/Nemo-Time-sub000/internal/query"
	"github.com/basedlsg/Nemo-Time-sub000/internal/resilience"
)

var (
	askProvince string
	askAsset    string
	askLang     string
)

var askCmd = &cobra.Command{
	Use:     "ask <question>",
	Short:   "Answer a question from the document index and print JSON",
	Example: `  nemo ask "广东分布式光伏并网需要哪些材料？" --province gd --asset solar`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeQuery); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		breakers := resilience.NewBreakers(resilience.BreakerConfigFromConfig(cfg.Circuit))
		resp, err := newQueryService(st, breakers).Answer(ctx, query.Request{
			Question: strings.Join(args, " "),
			Province: askProvince,
			Asset:    askAsset,
			Lang:     askLang,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	askCmd.Flags().StringVar(&askProvince, "province", "", "restrict retrieval to a province (gd, sd, nm)")
	askCmd.Flags().StringVar(&askAsset, "asset", "", "restrict retrieval to an asset type (solar, coal, wind)")
	askCmd.Flags().StringVar(&askLang, "lang", query.DefaultLang, "citation language (zh-CN or en)")
	rootCmd.AddCommand(askCmd)
}
