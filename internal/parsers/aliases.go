package parsers

import (
	"context"
	"io"

	"treasury-reconciliation-service/internal/matcher"
	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"
)

// Alias file column names. The file maps noisy observed payer strings to
// canonical customer names, one pair per row.
const (
	aliasColumnObserved  = "payer_alias"
	aliasColumnCanonical = "canonical_name"
)

// LoadAliasRegistry reads a payer alias mapping CSV and builds the registry
// the matching engine resolves payer names through. Rows with an empty side
// are recorded and skipped.
func LoadAliasRegistry(filePath string) (*matcher.AliasRegistry, *ParseStats, error) {
	return LoadAliasRegistryWithContext(context.Background(), filePath)
}

// LoadAliasRegistryWithContext loads the alias mapping with cancellation support
func LoadAliasRegistryWithContext(ctx context.Context, filePath string) (*matcher.AliasRegistry, *ParseStats, error) {
	log := logger.GetGlobalLogger().WithComponent("alias_loader")
	log.WithField("file_path", filePath).Info("Loading payer alias registry")

	base := NewBaseParser(DefaultParseConfig())

	file, reader, err := base.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	if err := base.ReadHeaders(reader, parseCtx, []string{aliasColumnObserved, aliasColumnCanonical}); err != nil {
		return nil, stats, err
	}

	mapping := make(map[string]string)

	for {
		record, err := base.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if rerr, ok := errors.AsReconcilerError(err); ok && rerr.Category == errors.CategoryInternal {
				return nil, stats, err // cancelled
			}

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "malformed CSV record",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		observed, err := base.GetFieldValue(record, parseCtx, aliasColumnObserved)
		if err != nil || observed == "" {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   aliasColumnObserved,
				Message: "empty or missing alias",
				Err:     err,
			})
			continue
		}

		canonical, err := base.GetFieldValue(record, parseCtx, aliasColumnCanonical)
		if err != nil || canonical == "" {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   aliasColumnCanonical,
				Message: "empty or missing canonical name",
				Err:     err,
			})
			continue
		}

		mapping[observed] = canonical
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	log.WithFields(logger.Fields{
		"file_path":   filePath,
		"entries":     len(mapping),
		"error_count": stats.ErrorCount,
	}).Info("Payer alias registry loaded")

	return matcher.NewAliasRegistry(mapping), stats, nil
}
