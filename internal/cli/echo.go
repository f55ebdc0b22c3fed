package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrel/ndkbinder/internal/echo"
	"github.com/mithrel/ndkbinder/pkg/binder"
)

func newEchoCmd() *cobra.Command {
	var name string
	var dump bool
	cmd := &cobra.Command{
		Use:   "echo [payload]",
		Short: "Create a sample object in this process and call it",
		Long: "Defines the sample class on the configured backend, creates one object and\n" +
			"sends it echo, reverse and count transactions. With the loopback backend the\n" +
			"calls go through a simulated remote proxy.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			payload := "ping"
			if len(args) == 1 {
				payload = args[0]
			}
			cls, err := echo.Define(app.Native, app.Cfg.GetString("daemon.descriptor"), app.Log)
			if err != nil {
				return err
			}
			obj, err := cls.New(name)
			if err != nil {
				return err
			}
			defer obj.Release()

			target := obj
			if lb := app.Loopback; lb != nil {
				p := lb.Proxy(obj.Ptr())
				remote, err := binder.FromPtr(app.Native, p)
				lb.DecStrong(p)
				if err != nil {
					return err
				}
				defer remote.Release()
				target = remote
			}

			out := cmd.OutOrStdout()
			reply, err := echo.Echo(target, []byte(payload))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "echo: %s\n", reply)
			if reply, err = echo.Reverse(target, []byte(payload)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "reverse: %s\n", reply)
			n, err := echo.Count(target)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "count: %d\n", n)
			if dump {
				text, err := target.DumpString()
				_, _ = fmt.Fprint(out, text)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "local", "object name")
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the object afterwards")
	return cmd
}
