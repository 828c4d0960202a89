// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tc420ctl/pkg/frametrace"
	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

var traceAnomaliesOnly bool

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Display a frame trace in human-readable format",
	Long: `Decode a trace recorded with --trace and display every frame with its
timestamp, command, and decoded data.

Host frames are checked against the frame rules (magic, terminator,
checksum, length, known command) and anomalies are reported. Device
answers are shown as acknowledgments or raw data.

Use --anomalies-only to list just the frames that break the rules.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().BoolVar(&traceAnomaliesOnly, "anomalies-only", false, "Only show frames with anomalies")
}

func runTrace(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := frametrace.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	header := r.Header()

	fmt.Printf("TC420 - Frame Trace\n")
	fmt.Printf("Session: %s\n", header.Session)
	fmt.Printf("Device: %s\n", header.Note)
	fmt.Printf("Started: %s\n\n", header.Time.Format("2006-01-02 15:04:05.000"))

	var frames, acks, anomalies int
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", frames+1, err)
		}
		frames++

		p, err := rec.Packet()
		if err != nil {
			fmt.Printf("[ERROR] #%d %s: %v\n", rec.Seq, rec.Direction, err)
			anomalies++
			continue
		}

		var problems []tc420.ValidationError
		if rec.Direction == frametrace.DirOut {
			problems = tc420.ValidateFrame(p)
		} else if p.IsAck() {
			acks++
		}
		anomalies += len(problems)

		if traceAnomaliesOnly && len(problems) == 0 {
			continue
		}
		printTraceRecord(rec, p, problems)
	}

	fmt.Printf("--- Trace summary ---\n")
	fmt.Printf("Frames: %d\n", frames)
	fmt.Printf("Acknowledged: %d\n", acks)
	fmt.Printf("Anomalies: %d\n", anomalies)
	return nil
}

func printTraceRecord(rec frametrace.Record, p *tc420.Packet, problems []tc420.ValidationError) {
	switch rec.Direction {
	case frametrace.DirOut:
		fmt.Printf("#%d >> ", rec.Seq)
		fmt.Print(tc420.FormatFrame(p))
	default:
		status := "no ack"
		if p.IsAck() {
			status = "ack"
		}
		fmt.Printf("#%d << [%s] %s\n", rec.Seq, rec.Time.Format("15:04:05.000"), status)
		if !p.IsAck() {
			fmt.Printf("  Data: % X ...\n", p.Raw()[:16])
		}
	}
	for _, v := range problems {
		fmt.Printf("  [ANOMALY] %s\n", v.Message)
	}
	fmt.Println()
}
