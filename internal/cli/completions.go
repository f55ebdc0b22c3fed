package cli

import (
	"context"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mithrel/ndkbinder/internal/config"
	"github.com/mithrel/ndkbinder/internal/ipc"
)

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generate shell completion scripts",
	}
	for _, shell := range []string{"bash", "zsh", "fish"} {
		cmd.AddCommand(&cobra.Command{
			Use:         shell,
			Short:       "Generate " + shell + " completions",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{configOnly: "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				out := cmd.OutOrStdout()
				switch shell {
				case "zsh":
					return cmd.Root().GenZshCompletion(out)
				case "fish":
					return cmd.Root().GenFishCompletion(out, true)
				default:
					return cmd.Root().GenBashCompletion(out)
				}
			},
		})
	}
	return cmd
}

// completeObjects offers the names of objects hosted by the daemon. Shell
// completion bypasses the root pre-run hook, so config is loaded here.
func completeObjects(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	v := viper.New()
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
	}
	if err := config.Load(cmd.Context(), v); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	sock, err := ipc.SocketPath(v.GetString("socket_path"))
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Second)
	defer cancel()
	resp, err := ipc.Request(ctx, sock, ipc.Message{Name: ipc.CmdObjectsList})
	if err != nil || !resp.OK {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(resp.Objects))
	for _, o := range resp.Objects {
		names = append(names, o.Name)
	}
	return rankNames(toComplete, names, 20), cobra.ShellCompDirectiveNoFileComp
}

// rankNames returns up to n candidates fuzzy-matching input, best first.
// An empty input returns candidates unchanged.
func rankNames(input string, candidates []string, n int) []string {
	if input == "" {
		return candidates
	}
	matches := fuzzy.Find(input, candidates)
	if n > 0 && len(matches) > n {
		matches = matches[:n]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}
