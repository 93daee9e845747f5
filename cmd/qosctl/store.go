// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"code.hybscloud.com/idiom/internal/store"
	"code.hybscloud.com/idiom/qos"
)

func newStoreCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "store", Short: "Manage stored stream policies"}
	cmd.PersistentFlags().String("dir", "", "store directory (default: store.dir from config)")
	cmd.AddCommand(newStorePutCommand())
	cmd.AddCommand(newStoreGetCommand())
	cmd.AddCommand(newStoreListCommand())
	cmd.AddCommand(newStoreRemoveCommand())
	return cmd
}

// openStore opens --dir, falling back to the configured directory.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		dir = cfg.Store.Dir
	}
	return store.Open(dir)
}

func newStorePutCommand() *cobra.Command {
	format := newChoice("json", "json", "cbor")
	cmd := &cobra.Command{
		Use:   "put <stream> [file|-]",
		Short: "Store a wire policy list for a stream",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[1:])
			if err != nil {
				return err
			}
			v, err := parseWire(data, format.value)
			if err != nil {
				return err
			}
			policies, err := qos.Decode(v)
			if err != nil {
				return err
			}
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			changed, err := s.Put(args[0], policies)
			if err != nil {
				return err
			}
			state := "unchanged"
			if changed {
				state = "stored"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], state)
			return err
		},
	}
	cmd.Flags().Var(format, "format", "input format: json|cbor (hex or raw)")
	return cmd
}

func newStoreGetCommand() *cobra.Command {
	output := newChoice("text", "text", "json", "cbor", "yaml")
	cmd := &cobra.Command{
		Use:   "get <stream>",
		Short: "Print the stored policies of a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			e, err := s.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output.value == "text" {
				if _, err := fmt.Fprintf(out, "# %s %s\n", e.Stream, e.Fingerprint); err != nil {
					return err
				}
				return writePolicies(out, e.Policies)
			}
			w, err := qos.Encode(e.Policies)
			if err != nil {
				return err
			}
			return writeWire(out, w, output.value)
		},
	}
	cmd.Flags().Var(output, "output", "text|json|cbor|yaml")
	return cmd
}

func newStoreListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored streams",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			entries, err := s.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", e.Stream, e.Fingerprint, len(e.Policies)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newStoreRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <stream>",
		Aliases: []string{"delete"},
		Short:   "Remove a stream's stored policies",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Delete(args[0])
		},
	}
}
