package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libetoken-go/config"
	"github.com/bitfsorg/libetoken-go/vault"
	"github.com/bitfsorg/libetoken-go/wallet"
)

var (
	initRestore bool
	initWords   int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or restore a wallet",
	Long: `Create a new wallet in the data directory, or restore one from a
recovery phrase with --restore. The phrase is stored encrypted under the
wallet password and the config file is written with the current settings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := openVault()
		if v.Exists() {
			return vault.ErrVaultExists
		}
		net, err := wallet.GetNetwork(cfg.Network)
		if err != nil {
			return err
		}

		var mnemonic string
		if initRestore {
			fmt.Fprint(os.Stderr, "Recovery phrase: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("read recovery phrase: %w", err)
			}
			mnemonic = strings.Join(strings.Fields(line), " ")
			if !wallet.ValidateMnemonic(mnemonic) {
				return wallet.ErrInvalidMnemonic
			}
		} else {
			bits := wallet.Mnemonic12Words
			if initWords == 24 {
				bits = wallet.Mnemonic24Words
			}
			if mnemonic, err = wallet.GenerateMnemonic(bits); err != nil {
				return err
			}
		}

		pw, err := readPassword("New wallet password")
		if err != nil {
			return err
		}
		if os.Getenv(EnvPassword) == "" {
			confirm, err := readPassword("Repeat password")
			if err != nil {
				return err
			}
			if confirm != pw {
				return fmt.Errorf("passwords do not match")
			}
		}

		seed, err := wallet.SeedFromMnemonic(mnemonic, "")
		if err != nil {
			return err
		}
		key, err := wallet.DeriveActiveKey(seed, net)
		wallet.Zero(seed)
		if err != nil {
			return err
		}

		if err := v.Create(mnemonic, pw, vault.Meta{Network: net.Name, Address: key.Address}); err != nil {
			return err
		}
		if err := config.SaveConfig(config.ConfigPath(cfg.DataDir), cfg); err != nil {
			return err
		}

		out := map[string]string{"address": key.Address, "network": net.Name}
		if !initRestore {
			out["mnemonic"] = mnemonic
		}
		return printResult(out, func() {
			fmt.Printf("Address: %s\n", key.Address)
			if !initRestore {
				fmt.Println("Write down this recovery phrase, it is the only backup of the wallet:")
				fmt.Printf("\n  %s\n\n", mnemonic)
			}
		})
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the receive address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := openVault().Meta()
		if err != nil {
			return err
		}
		if meta.Network != cfg.Network {
			return fmt.Errorf("wallet belongs to %s, config selects %s", meta.Network, cfg.Network)
		}
		return printResult(meta, func() { fmt.Println(meta.Address) })
	},
}

func init() {
	initCmd.Flags().BoolVar(&initRestore, "restore", false, "restore from an existing recovery phrase read from stdin")
	initCmd.Flags().IntVar(&initWords, "words", 12, "recovery phrase length, 12 or 24")
}
