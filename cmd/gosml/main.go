package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/d21d3q/gosml/pkg/gosml"
)

var (
	rootCmd = &cobra.Command{
		Use:   "gosml [hex]",
		Short: "Decode SML smart meter datagrams",
		Long:  "gosml decodes SML datagrams pushed by electricity meters, either a single hex dump or a live serial stream.",
		Args:  cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := gosml.AnalyzeOptions{ServerIDTable: serverIDTable, Tree: tree, SkipCRC: skipCRC}
			ctx := cmd.Context()
			if len(args) == 0 {
				return runInteractive(ctx, opts)
			}
			return runAnalyze(ctx, opts, args[0])
		},
	}

	serverIDTable string
	tree          bool
	skipCRC       bool
	logLevel      string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&serverIDTable, "serverid-table", "", "server id layout table (din43863, fnn)")
	rootCmd.Flags().BoolVar(&tree, "tree", false, "print the decoded node tree")
	rootCmd.Flags().BoolVar(&skipCRC, "skip-crc", false, "accept transport frames with a bad checksum")
	rootCmd.AddCommand(listenCmd)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func runInteractive(ctx context.Context, opts gosml.AnalyzeOptions) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	logrus.Info("gosml analyze mode. Paste a hex datagram and press Enter (Ctrl+D to exit).")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := runAnalyze(ctx, opts, line); err != nil {
			logrus.WithError(err).Error("failed to decode datagram")
		}
	}
	return scanner.Err()
}

func runAnalyze(ctx context.Context, opts gosml.AnalyzeOptions, hex string) error {
	result, err := gosml.AnalyzeHexWithOptions(ctx, hex, opts)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		logrus.Warn(w)
	}
	if result.Tree != "" {
		fmt.Print(result.Tree)
	}
	fmt.Println(result.String())
	return nil
}
