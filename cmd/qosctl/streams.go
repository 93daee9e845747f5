// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStreamsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "streams",
		Short: "Derive and store the policies of every configured stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			changed, err := rt.Persist()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, key := range changed {
				if _, err := fmt.Fprintf(out, "stored %s\n", key); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(out, "%d streams, %d changed\n", len(rt.Config().Streams), len(changed))
			return err
		},
	}
}
