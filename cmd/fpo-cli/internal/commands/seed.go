package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptpool/fpo/cmd/fpo-cli/internal/display"
	"github.com/promptpool/fpo/cmd/fpo-cli/internal/runner"
	"github.com/promptpool/fpo/cmd/fpo-cli/internal/seedfile"
	"github.com/promptpool/fpo/pkg/errors"
)

func NewSeedCommand() *cobra.Command {
	var configPath string
	var seedPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Initialize the prompt registry from a seed file",
		Long: `Create the initial candidate registry from a seed file of prompt
templates. Each template gets a generated id when none is given and starts at
weight 0.5 unless the file says otherwise. The heaviest seed becomes the
champion.

An existing registry is never overwritten unless --force is set. --force also
replaces a registry that no longer parses.`,
		Example: `  # Seed a fresh registry
  fpo-cli seed --file seeds.yaml

  # Replace an existing registry
  fpo-cli seed --file seeds.yaml --force

  # Use a specific config file
  fpo-cli seed --file seeds.yaml --config fpo.yaml`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSeed(configPath, seedPath, force); err != nil {
				fmt.Printf("%sError:%s %v\n", display.ColorRed, display.ColorReset, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&seedPath, "file", "", "Seed file with domains and prompt templates (YAML or JSON)")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: fpo.yaml, .fpo.yaml, ~/.fpo/config.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing registry")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(configPath, seedPath string, force bool) error {
	cfg, err := runner.LoadConfig(configPath)
	if err != nil {
		return err
	}
	runner.SetupLogging(cfg, false)

	pop, err := seedfile.Load(seedPath)
	if err != nil {
		return err
	}

	st, err := runner.BuildStore(cfg)
	if err != nil {
		return err
	}
	defer runner.CloseStore(st)

	ctx := context.Background()
	if !force {
		if _, err := st.Load(ctx); err == nil {
			return fmt.Errorf("registry %s already exists, use --force to replace it", cfg.Store.Path)
		} else if errors.Code(err) != errors.ResourceNotFound {
			return err
		}
	}

	if err := st.Save(ctx, pop); err != nil {
		return err
	}

	fmt.Printf("%s%sRegistry seeded%s\n", display.ColorBold, display.ColorGreen, display.ColorReset)
	fmt.Println(strings.Repeat("=", 40))
	fmt.Printf("%sRegistry:%s %s (%s)\n", display.ColorCyan, display.ColorReset, cfg.Store.Path, cfg.Store.Backend)
	fmt.Printf("%sTemplates:%s %d\n", display.ColorCyan, display.ColorReset, pop.Size())
	if len(pop.Domains) > 0 {
		fmt.Printf("%sDomains:%s %s\n", display.ColorCyan, display.ColorReset, strings.Join(pop.Domains, ", "))
	}
	fmt.Printf("%sChampion:%s %s\n", display.ColorCyan, display.ColorReset, pop.ChampionID)
	return nil
}
