// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"code.hybscloud.com/idiom/qos"
)

func newDecodeCommand() *cobra.Command {
	var (
		format = newChoice("json", "json", "cbor")
		output = newChoice("text", "text", "yaml", "json")
	)
	cmd := &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Decode a wire policy list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
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
			if output.value == "text" {
				return writePolicies(cmd.OutOrStdout(), policies)
			}
			w, err := qos.Encode(policies)
			if err != nil {
				return err
			}
			return writeWire(cmd.OutOrStdout(), w, output.value)
		},
	}
	cmd.Flags().Var(format, "format", "input format: json|cbor (hex or raw)")
	cmd.Flags().Var(output, "output", "text|yaml|json")
	return cmd
}
