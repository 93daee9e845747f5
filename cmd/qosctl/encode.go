// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"code.hybscloud.com/idiom/qos"
)

func newEncodeCommand() *cobra.Command {
	var (
		durability  durabilityFlag
		reliability reliabilityFlag
		format      = newChoice("json", "json", "cbor", "yaml")
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a Durability and Reliability policy pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policies := []qos.Policy{qos.Durability{Kind: durability.kind}}
			if reliability.set {
				r := qos.Reliability{Kind: reliability.kind}
				if cmd.Flags().Changed("max-blocking") {
					d, _ := cmd.Flags().GetDuration("max-blocking")
					r = r.WithMaxBlockingTime(qos.FromStd(d))
				}
				policies = append(policies, r)
			}
			w, err := qos.Encode(policies)
			if err != nil {
				return err
			}
			return writeWire(cmd.OutOrStdout(), w, format.value)
		},
	}
	cmd.Flags().Var(&durability, "durability", "volatile|transient_local|transient|persistent")
	cmd.Flags().Var(&reliability, "reliability", "best_effort|reliable (omitted when unset)")
	cmd.Flags().Duration("max-blocking", 0, "reliable max blocking time; negative is infinite")
	cmd.Flags().Var(format, "format", "json|cbor|yaml")
	return cmd
}
