package gosml

import (
	"context"

	internalopts "github.com/d21d3q/gosml/internal/options"
)

// AnalyzeOptions configures parsing.
type AnalyzeOptions struct {
	// ServerIDTable names the server id layout table: "din43863" (default) or "fnn".
	ServerIDTable string
	// Tree fills Result.Tree with a dump of the decoded nodes.
	Tree bool
	// SkipCRC accepts transport frames without checking their checksum.
	SkipCRC bool
}

func (opts AnalyzeOptions) toInternal(ctx context.Context) (context.Context, error) {
	if opts.ServerIDTable == "" {
		return ctx, nil
	}
	table, err := internalopts.ParseServerIDTable(opts.ServerIDTable)
	if err != nil {
		return ctx, err
	}
	return internalopts.WithServerIDTable(ctx, table), nil
}

func (opts AnalyzeOptions) verifyCRC() bool {
	return !opts.SkipCRC
}
