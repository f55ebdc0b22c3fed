package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mithrel/ndkbinder/internal/config"
	"github.com/mithrel/ndkbinder/internal/ipc"
	"github.com/mithrel/ndkbinder/pkg/binder"
)

// request sends m to the daemon named by the resolved configuration. A
// reply with OK unset becomes an error carrying the binder status.
func request(cmd *cobra.Command, m ipc.Message) (ipc.Response, error) {
	v, err := getConfig(cmd)
	if err != nil {
		return ipc.Response{}, err
	}
	sock, err := ipc.SocketPath(v.GetString("socket_path"))
	if err != nil {
		return ipc.Response{}, err
	}
	// Leave room for the daemon's own dump deadline.
	ctx, cancel := context.WithTimeout(cmd.Context(), config.DumpTimeout(v)+5*time.Second)
	defer cancel()
	resp, err := ipc.Request(ctx, sock, m)
	if err != nil {
		return resp, fmt.Errorf("daemon at %s: %w", sock, err)
	}
	if !resp.OK {
		if resp.Status != 0 {
			return resp, &remoteError{msg: resp.Msg, status: binder.Status(resp.Status)}
		}
		return resp, errors.New(resp.Msg)
	}
	return resp, nil
}

// remoteError is a failure reported by the daemon together with the binder
// status behind it.
type remoteError struct {
	msg    string
	status binder.Status
}

func (e *remoteError) Error() string {
	if e.msg == "" {
		return e.status.Error()
	}
	return e.msg
}

func (e *remoteError) Unwrap() error { return e.status }

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "dump <object> [-- args...]",
		Short:             "Print the diagnostics of a hosted object",
		Args:              cobra.MinimumNArgs(1),
		Annotations:       map[string]string{configOnly: "true"},
		ValidArgsFunction: completeObjects,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := request(cmd, ipc.Message{Name: ipc.CmdObjectDump, Object: args[0], Args: args[1:]})
			// partial output is still useful when the handler failed
			_, _ = fmt.Fprint(cmd.OutOrStdout(), resp.Output)
			return err
		},
	}
}

func newTransactCmd() *cobra.Command {
	var hexIn, hexOut bool
	cmd := &cobra.Command{
		Use:               "transact <object> <code> [payload]",
		Short:             "Send one transaction to a hosted object",
		Args:              cobra.RangeArgs(2, 3),
		Annotations:       map[string]string{configOnly: "true"},
		ValidArgsFunction: completeObjects,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.ParseUint(args[1], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid code %q: %w", args[1], err)
			}
			var payload []byte
			if len(args) == 3 {
				payload = []byte(args[2])
				if hexIn {
					if payload, err = hex.DecodeString(args[2]); err != nil {
						return fmt.Errorf("invalid hex payload: %w", err)
					}
				}
			}
			resp, err := request(cmd, ipc.Message{Name: ipc.CmdObjectTransact, Object: args[0], Code: int32(code), Payload: payload})
			if err != nil {
				return err
			}
			out := string(resp.Payload)
			if hexOut {
				out = hex.EncodeToString(resp.Payload)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&hexIn, "hex", false, "payload is hex encoded")
	cmd.Flags().BoolVar(&hexOut, "hex-out", false, "print the reply hex encoded")
	return cmd
}

func newObjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "objects",
		Short:       "List objects hosted by the daemon",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{configOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := request(cmd, ipc.Message{Name: ipc.CmdObjectsList})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tDESCRIPTOR\tALIVE\tTRANSACTIONS")
			for _, o := range resp.Objects {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%d\n", o.Name, o.Descriptor, o.Alive, o.Served)
			}
			return tw.Flush()
		},
	}
}

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "classes",
		Short:       "List interface descriptors hosted by the daemon",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{configOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := request(cmd, ipc.Message{Name: ipc.CmdObjectsList})
			if err != nil {
				return err
			}
			byDesc := make(map[string][]string)
			for _, o := range resp.Objects {
				byDesc[o.Descriptor] = append(byDesc[o.Descriptor], o.Name)
			}
			descs := make([]string, 0, len(byDesc))
			for d := range byDesc {
				descs = append(descs, d)
			}
			sort.Strings(descs)
			for _, d := range descs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d, strings.Join(byDesc[d], ","))
			}
			return nil
		},
	}
}
