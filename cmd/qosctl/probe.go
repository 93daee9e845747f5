// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"code.hybscloud.com/idiom"
)

// probe is the sample written by the probe command.
type probe struct {
	Run uuid.UUID `cbor:"run"`
	N   int       `cbor:"n"`
}

func newProbeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Write samples to a stream and wait for them to arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			count, _ := cmd.Flags().GetInt("count")
			wait, _ := cmd.Flags().GetDuration("wait")
			if count < 1 {
				return fmt.Errorf("--count must be >= 1")
			}
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			cfg := idiom.Config{Stream: stream}
			if st, ok := rt.Config().Stream(stream); ok {
				if cfg, err = st.Session(); err != nil {
					return err
				}
			}
			cfg.History = max(cfg.History, uint32(count))
			s, err := idiom.New[probe](rt.Participant(), cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			run := uuid.New()
			seen := make(chan struct{}, count)
			// Observing first creates the reader, so volatile streams see
			// every probe sample.
			err = s.Observe(ctx, func(smp idiom.Sample[probe]) {
				if smp.Value.Run != run {
					return
				}
				select {
				case seen <- struct{}{}:
				default:
				}
			})
			if err != nil {
				return err
			}
			batch := make([]probe, count)
			for i := range batch {
				batch[i] = probe{Run: run, N: i}
			}
			n, err := s.WriteAll(ctx, batch)
			if err != nil {
				return fmt.Errorf("wrote %d of %d: %w", n, count, err)
			}
			got := 0
			for got < n {
				select {
				case <-seen:
					got++
				case <-ctx.Done():
					return fmt.Errorf("received %d of %d: %w", got, n, ctx.Err())
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: wrote %d, received %d\n", stream, n, got)
			return err
		},
	}
	cmd.Flags().String("stream", "qosctl.probe", "stream name")
	cmd.Flags().Int("count", 10, "samples to write")
	cmd.Flags().Duration("wait", 10*time.Second, "overall time limit")
	return cmd
}
