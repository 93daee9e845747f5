// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"code.hybscloud.com/idiom/qos"
)

func newTableCommand() *cobra.Command {
	var (
		profile    profileFlag
		durability durabilityFlag
		output     = newChoice("text", "text", "yaml", "json")
	)
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Derive the topic, reader and writer policies of a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, _ := cmd.Flags().GetUint32("history")
			if history == 0 {
				return fmt.Errorf("--history must be >= 1")
			}
			t := profile.profile.Derive(durability.kind, history)
			roles := []struct {
				name string
				set  qos.Set
			}{{"topic", t.Topic}, {"reader", t.Reader}, {"writer", t.Writer}}
			out := cmd.OutOrStdout()
			if output.value == "text" {
				for _, r := range roles {
					if _, err := fmt.Fprintf(out, "%s:\n", r.name); err != nil {
						return err
					}
					if err := writePolicies(out, r.set); err != nil {
						return err
					}
				}
				return nil
			}
			doc := map[string][]map[string]any{}
			for _, r := range roles {
				w, err := qos.Encode(r.set)
				if err != nil {
					return err
				}
				doc[r.name] = named(w)
			}
			if output.value == "json" {
				return writeJSON(out, doc)
			}
			return writeYAML(out, doc)
		},
	}
	cmd.Flags().Var(&profile, "profile", "state|soft|event")
	cmd.Flags().Var(&durability, "durability", "volatile|transient_local|transient|persistent")
	cmd.Flags().Uint32("history", 1, "KeepLast depth")
	cmd.Flags().Var(output, "output", "text|yaml|json")
	return cmd
}
