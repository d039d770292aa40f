package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/NordCoder/Feedwatch/internal/domain/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the persisted state of every configured target",
	RunE:  runState,
}

func init() {
	stateCmd.Flags().StringP("output", "o", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(stateCmd)
}

type stateView struct {
	Target      string      `json:"target" yaml:"target"`
	Fingerprint string      `json:"fingerprint" yaml:"fingerprint"`
	Saved       bool        `json:"saved" yaml:"saved"`
	State       state.State `json:"state" yaml:"state"`
}

func runState(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("output")
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unknown output format %q", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	targets, err := cfg.PollTargets()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.close()

	views := make([]stateView, 0, len(targets))
	for _, t := range targets {
		fp, err := fingerprintFor(cfg, t)
		if err != nil {
			return err
		}
		st, ok, err := store.Load(ctx, fp)
		if err != nil {
			return err
		}
		views = append(views, stateView{Target: t.String(), Fingerprint: string(fp), Saved: ok, State: st})
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	enc := yaml.NewEncoder(out)
	defer enc.Close()
	return enc.Encode(views)
}
