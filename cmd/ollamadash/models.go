package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"ollamadash/internal/daemon"
	"ollamadash/internal/modelfile"
	"ollamadash/pkg/types"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw := a.gateway()
			status := types.ServerStopped
			if gw.CheckLiveness(cmd.Context()) {
				status = types.ServerRunning
			}
			fmt.Fprintf(a.stdout, "%s\t%s\n", gw.BaseURL(), status)
			return nil
		},
	}
}

func newModelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and manage daemon models",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List installed models",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.gateway().ListModels(cmd.Context())
				if err != nil {
					return err
				}
				return a.printJSON(list)
			},
		},
		&cobra.Command{
			Use:   "running",
			Short: "List models loaded in memory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.gateway().ListRunning(cmd.Context())
				if err != nil {
					return err
				}
				return a.printJSON(list)
			},
		},
		&cobra.Command{
			Use:   "stop <name>",
			Short: "Unload a running model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := a.gateway().StopModel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, res.Message)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Remove a model from the daemon",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := a.gateway().DeleteModel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, res.Message)
				return nil
			},
		},
		&cobra.Command{
			Use:   "pull <name>",
			Short: "Download a model, printing progress",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := a.gateway().PullModel(cmd.Context(), args[0], func(p daemon.PullProgress) {
					fmt.Fprintln(a.stdout, progressLine(p))
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, res.Message)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Print the model file split into its fields",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := a.gateway().GetModelConfig(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printJSON(cfg)
			},
		},
		newConfigSetCmd(a),
	)
	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	var (
		system, template string
		params           []string
		keep             bool
	)
	cmd := &cobra.Command{
		Use:     "config-set <name>",
		Short:   "Rebuild a model with a new system prompt, template or parameters",
		Example: "  ollamadash models config-set llama3 --system 'Be brief' --param temperature=0.2 --param stop='<|eot|>'",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			gw := a.gateway()
			var cfg modelfile.Config
			if keep {
				cur, err := gw.GetModelConfig(cmd.Context(), name)
				if err != nil {
					return err
				}
				cfg.System, cfg.Template = cur.System, cur.Template
				keys := make([]string, 0, len(cur.Parameters))
				for k := range cur.Parameters {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					cfg.Set(k, cur.Parameters[k])
				}
			}
			flags := cmd.Flags()
			if flags.Changed("system") {
				cfg.System = system
			}
			if flags.Changed("template") {
				cfg.Template = template
			}
			for _, kv := range params {
				k, v, err := parseParam(kv)
				if err != nil {
					return err
				}
				cfg.Set(k, v)
			}
			res, err := gw.SaveModelConfig(cmd.Context(), name, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, res.Message)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&system, "system", "", "System prompt")
	f.StringVar(&template, "template", "", "Prompt template")
	f.StringArrayVar(&params, "param", nil, "Parameter as key=value (repeatable)")
	f.BoolVar(&keep, "keep", false, "Start from the model's current configuration")
	return cmd
}

// parseParam splits "key=value". The value may itself contain '='.
func parseParam(kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", fmt.Errorf("invalid --param %q: want key=value", kv)
	}
	return k, v, nil
}

func progressLine(p daemon.PullProgress) string {
	if p.Total > 0 {
		return fmt.Sprintf("%s %d/%d (%d%%)", p.Status, p.Completed, p.Total, p.Completed*100/p.Total)
	}
	return p.Status
}

func (a *app) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, string(b))
	return err
}
