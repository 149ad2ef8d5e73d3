package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libetoken-go/airdrop"
	"github.com/bitfsorg/libetoken-go/engine"
	"github.com/bitfsorg/libetoken-go/token"
	"github.com/bitfsorg/libetoken-go/tx"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show spendable XEC and token dust",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := unlockedSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		b, v, err := s.Balance(cmd.Context())
		if err != nil {
			return err
		}
		staleNote(v)
		out := struct {
			Spendable uint64 `json:"spendable"`
			TokenDust uint64 `json:"tokenDust"`
			Total     uint64 `json:"total"`
			Freshness string `json:"freshness"`
		}{b.SpendableBalance, b.TokenDustValue, b.TotalBalance, v.Freshness.String()}
		return printResult(out, func() {
			fmt.Printf("Spendable:  %s XEC\n", xec(b.SpendableBalance))
			fmt.Printf("Token dust: %s XEC\n", xec(b.TokenDustValue))
			fmt.Printf("Total:      %s XEC\n", xec(b.TotalBalance))
		})
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List held tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := unlockedSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		holdings, v, err := s.Holdings(cmd.Context())
		if err != nil {
			return err
		}
		staleNote(v)
		return printResult(holdings, func() {
			if len(holdings) == 0 {
				fmt.Println("no tokens")
				return
			}
			for _, h := range holdings {
				baton := ""
				if h.HasMintBaton {
					baton = "  [mint baton]"
				}
				fmt.Printf("%s  %s  %s%s\n", h.TokenID, h.Protocol, h.Display(), baton)
			}
		})
	},
}

var supplyCmd = &cobra.Command{
	Use:   "supply TOKEN_ID",
	Short: "Show genesis and circulating supply of a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		rec, fresh, err := s.TokenSupply(cmd.Context(), args[0])
		if rec == nil {
			return err
		}
		if !fresh {
			fmt.Printf("warning: cached record from %s, sync failed: %v\n", rec.LastUpdated.Format("15:04:05"), err)
		}
		return printResult(rec, func() {
			fmt.Printf("Token:       %s (%s %s)\n", rec.TokenID, rec.Ticker, rec.Protocol)
			fmt.Printf("Genesis:     %s\n", token.FormatAmount(rec.GenesisSupply, rec.Decimals))
			fmt.Printf("Circulating: %s\n", token.FormatAmount(rec.CirculatingSupply, rec.Decimals))
			fmt.Printf("Fixed:       %t\n", rec.FixedSupply)
			fmt.Printf("Active:      %t\n", rec.IsActive)
			if rec.IsDeleted {
				fmt.Println("Deleted:     true (fixed supply fully burned)")
			}
		})
	},
}

var creatorCmd = &cobra.Command{
	Use:   "creator TOKEN_ID",
	Short: "Show whether this wallet created a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := unlockedSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		status, err := s.CreatorStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(map[string]string{"status": status.String()}, func() {
			fmt.Println(status)
		})
	},
}

var (
	sendMessage    string
	airdropMessage string
)

var sendCmd = &cobra.Command{
	Use:   "send TOKEN_ID ADDRESS AMOUNT",
	Short: "Send tokens",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := unlockedSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		proto, dec, err := s.TokenParams(ctx, args[0])
		if err != nil {
			return err
		}
		atoms, err := token.ParseAmount(args[2], dec)
		if err != nil {
			return err
		}
		return reportDraft(s.Send(ctx, tx.SendRequest{
			TokenID: args[0], Protocol: proto, Decimals: dec, Destination: args[1], Amount: atoms,
			Message: sendMessage,
		}))
	},
}

var sendManyCmd = &cobra.Command{
	Use:   "send-many TOKEN_ID ADDRESS=AMOUNT...",
	Short: "Send explicit token amounts to several addresses in one transaction",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := unlockedSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		proto, dec, err := s.TokenParams(ctx, args[0])
		if err != nil {
			return err
		}
		payments, err := parsePayments(args[1:], dec)
		if err != nil {
			return err
		}
		return reportDraft(s.SendToMany(ctx, tx.MultiSendRequest{
			TokenID: args[0], Protocol: proto, Decimals: dec, Payments: payments, Message: sendMessage,
		}))
	},
}

var mintCmd = &cobra.Command{
	Use:   "mint TOKEN_ID AMOUNT",
	Short: "Mint new tokens with the wallet's mint baton",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := unlockedSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		proto, dec, err := s.TokenParams(ctx, args[0])
		if err != nil {
			return err
		}
		atoms, err := token.ParseAmount(args[1], dec)
		if err != nil {
			return err
		}
		return reportDraft(s.Mint(ctx, tx.MintRequest{TokenID: args[0], Protocol: proto, Decimals: dec, Amount: atoms}))
	},
}

var burnCmd = &cobra.Command{
	Use:   "burn TOKEN_ID AMOUNT",
	Short: "Destroy tokens",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := unlockedSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		proto, dec, err := s.TokenParams(ctx, args[0])
		if err != nil {
			return err
		}
		atoms, err := token.ParseAmount(args[1], dec)
		if err != nil {
			return err
		}
		return reportDraft(s.Burn(ctx, tx.BurnRequest{TokenID: args[0], Protocol: proto, Decimals: dec, Amount: atoms}))
	},
}

var (
	airdropTo        []string
	airdropHoldersOf []string
	airdropMode      string
	airdropMinAtoms  uint64
)

var airdropCmd = &cobra.Command{
	Use:   "airdrop TOKEN_ID TOTAL",
	Short: "Split tokens across recipients",
	Long: `Split TOTAL tokens across the recipients given with --to ADDRESS[=WEIGHT],
or across the holders of the tokens named with --holders-of, weighted by
their holdings in prorata mode.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mode, err := airdrop.ParseMode(airdropMode)
		if err != nil {
			return err
		}
		s, err := unlockedSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		proto, dec, err := s.TokenParams(ctx, args[0])
		if err != nil {
			return err
		}
		total, err := token.ParseAmount(args[1], dec)
		if err != nil {
			return err
		}
		recipients, err := airdropRecipients(cmd, s)
		if err != nil {
			return err
		}
		return reportDraft(s.Airdrop(ctx, tx.AirdropRequest{
			TokenID: args[0], Protocol: proto, Decimals: dec, Total: total, Recipients: recipients, Mode: mode,
			Message: airdropMessage,
		}))
	},
}

func airdropRecipients(cmd *cobra.Command, s *engine.Session) ([]airdrop.Recipient, error) {
	if len(airdropHoldersOf) > 0 {
		self, err := s.Address()
		if err != nil {
			return nil, err
		}
		holders, err := airdrop.FetchHolders(cmd.Context(), s.Indexer(), airdropHoldersOf, airdrop.HolderOptions{
			Network:  s.Network(),
			Exclude:  []string{self},
			MinAtoms: airdropMinAtoms,
		})
		if err != nil {
			return nil, err
		}
		return airdrop.Recipients(holders), nil
	}
	return parseRecipients(airdropTo)
}

// parseRecipients reads ADDRESS or ADDRESS=WEIGHT entries. Cashaddr
// prefixes contain ':' so '=' separates the weight.
func parseRecipients(entries []string) ([]airdrop.Recipient, error) {
	out := make([]airdrop.Recipient, 0, len(entries))
	for _, e := range entries {
		addr, weight, found := strings.Cut(e, "=")
		r := airdrop.Recipient{Address: strings.TrimSpace(addr), Weight: 1}
		if found {
			w, err := strconv.ParseUint(strings.TrimSpace(weight), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("recipient %q: bad weight: %w", e, err)
			}
			r.Weight = w
		}
		out = append(out, r)
	}
	return out, nil
}

// parsePayments reads ADDRESS=AMOUNT entries, AMOUNT in display units.
func parsePayments(entries []string, decimals uint8) ([]tx.TokenPayment, error) {
	out := make([]tx.TokenPayment, 0, len(entries))
	for _, e := range entries {
		addr, amount, found := strings.Cut(e, "=")
		if !found {
			return nil, fmt.Errorf("payment %q: want ADDRESS=AMOUNT", e)
		}
		atoms, err := token.ParseAmount(amount, decimals)
		if err != nil {
			return nil, fmt.Errorf("payment %q: %w", e, err)
		}
		out = append(out, tx.TokenPayment{Address: strings.TrimSpace(addr), Amount: atoms})
	}
	return out, nil
}

var (
	genesisProtocol string
	genesisTicker   string
	genesisName     string
	genesisURL      string
	genesisDecimals uint8
	genesisFixed    bool
)

var createTokenCmd = &cobra.Command{
	Use:   "create-token QUANTITY",
	Short: "Issue a new token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		proto, err := token.ParseProtocol(genesisProtocol)
		if err != nil {
			return err
		}
		qty, err := token.ParseAmount(args[0], genesisDecimals)
		if err != nil {
			return err
		}
		s, err := unlockedSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		return reportDraft(s.CreateToken(ctx, tx.GenesisRequest{
			Protocol: proto,
			Info: token.GenesisInfo{
				Ticker:   genesisTicker,
				Name:     genesisName,
				URL:      genesisURL,
				Decimals: genesisDecimals,
			},
			InitialQty: qty,
			WithBaton:  !genesisFixed,
		}))
	},
}

func init() {
	f := airdropCmd.Flags()
	f.StringArrayVar(&airdropTo, "to", nil, "recipient ADDRESS[=WEIGHT], repeatable")
	f.StringSliceVar(&airdropHoldersOf, "holders-of", nil, "airdrop to holders of these token ids")
	f.StringVar(&airdropMode, "mode", "equal", "equal or prorata")
	f.Uint64Var(&airdropMinAtoms, "min-atoms", 0, "ignore holders with fewer atoms")
	f.StringVar(&airdropMessage, "message", "", "memo carried in the OP_RETURN (ALP only)")

	for _, c := range []*cobra.Command{sendCmd, sendManyCmd} {
		c.Flags().StringVar(&sendMessage, "message", "", "memo carried in the OP_RETURN (ALP only)")
	}

	g := createTokenCmd.Flags()
	g.StringVar(&genesisProtocol, "protocol", "ALP", "ALP or SLP")
	g.StringVar(&genesisTicker, "ticker", "", "token ticker")
	g.StringVar(&genesisName, "name", "", "token name")
	g.StringVar(&genesisURL, "url", "", "document URL")
	g.Uint8Var(&genesisDecimals, "decimals", 0, "display decimals")
	g.BoolVar(&genesisFixed, "fixed", false, "fixed supply: emit no mint baton")
}
