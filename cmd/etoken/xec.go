package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libetoken-go/airdrop"
	"github.com/bitfsorg/libetoken-go/internal/log"
)

var sendXecCmd = &cobra.Command{
	Use:   "send-xec ADDRESS AMOUNT|max",
	Short: "Send XEC",
	Long:  "Send AMOUNT XEC to ADDRESS. \"max\" sweeps every spendable output, less the fee.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sweep := strings.EqualFold(args[1], "max")
		var sats uint64
		if !sweep {
			var err error
			if sats, err = parseXec(args[1]); err != nil {
				return err
			}
		}
		s, err := unlockedSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		if sweep {
			if sats, err = s.MaxSendable(cmd.Context()); err != nil {
				return err
			}
			if sats == 0 {
				return fmt.Errorf("nothing sendable: spendable XEC does not cover fee and dust")
			}
		}
		return reportDraft(s.SendXec(cmd.Context(), args[0], sats))
	},
}

var (
	xecAirdropMode     string
	xecAirdropMinAtoms uint64
)

var airdropXecCmd = &cobra.Command{
	Use:   "airdrop-xec TOTAL TOKEN_ID...",
	Short: "Pay XEC to the holders of tokens",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		total, err := parseXec(args[0])
		if err != nil {
			return err
		}
		mode, err := airdrop.ParseMode(xecAirdropMode)
		if err != nil {
			return err
		}
		s, err := unlockedSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return reportDraft(s.AirdropXecToHolders(cmd.Context(), args[1:], total, mode, xecAirdropMinAtoms))
	},
}

var messageCmd = &cobra.Command{
	Use:   "message TEXT",
	Short: "Post an OP_RETURN message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := unlockedSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return reportDraft(s.SendMessage(cmd.Context(), args[0]))
	},
}

var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Show the indexer's best block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		tip, err := s.Tip(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(tip, func() { fmt.Printf("%d %s\n", tip.Height, tip.Hash) })
	},
}

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh the balance periodically until interrupted",
	Long: `Refresh the wallet snapshot every --interval and log the balance.
With metrics_addr configured this keeps the /metrics endpoint up.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := unlockedSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		lg := log.Wallet
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			b, v, err := s.Balance(ctx)
			switch {
			case err != nil:
				lg.Warn().Err(err).Msg("refresh failed")
			default:
				ev := lg.Info().
					Uint64("spendable", b.SpendableBalance).
					Uint64("token_dust", b.TokenDustValue).
					Str("freshness", v.Freshness.String())
				if v.LastError != nil {
					ev = ev.AnErr("last_error", v.LastError)
				}
				ev.Msg("balance")
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	airdropXecCmd.Flags().StringVar(&xecAirdropMode, "mode", "prorata", "equal or prorata")
	airdropXecCmd.Flags().Uint64Var(&xecAirdropMinAtoms, "min-atoms", 0, "ignore holders with fewer atoms")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "refresh interval")
}
