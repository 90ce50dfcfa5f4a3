package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptpool/fpo/cmd/fpo-cli/internal/display"
	"github.com/promptpool/fpo/cmd/fpo-cli/internal/runner"
	"github.com/promptpool/fpo/pkg/errors"
	"github.com/promptpool/fpo/pkg/fpo"
)

func NewStatusCommand() *cobra.Command {
	var configPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the committed registry state",
		Long: `Print the committed registry: the champion, population and generation
counts, and every candidate ranked by weight. The projection is read-only and
never touches the registry.`,
		Example: `  # Human readable status
  fpo-cli status

  # Status as JSON, for scripts
  fpo-cli status --json`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runStatus(configPath, asJSON); err != nil {
				fmt.Printf("%sError:%s %v\n", display.ColorRed, display.ColorReset, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: fpo.yaml, .fpo.yaml, ~/.fpo/config.yaml)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the status as JSON")

	return cmd
}

func runStatus(configPath string, asJSON bool) error {
	cfg, err := runner.LoadConfig(configPath)
	if err != nil {
		return err
	}
	runner.SetupLogging(cfg, false)

	st, err := runner.BuildStore(cfg)
	if err != nil {
		return err
	}
	defer runner.CloseStore(st)

	pop, err := st.Load(context.Background())
	if err != nil {
		if errors.Code(err) == errors.ResourceNotFound {
			return fmt.Errorf("no registry at %s, run 'fpo-cli seed' first", cfg.Store.Path)
		}
		return err
	}

	status := fpo.NewStatus(pop)
	if asJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Print(display.FormatStatus(status, cfg.Store.Path))
	return nil
}
