package services

import (
	"context"
	"fmt"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/log"
)

type ExportService struct {
	txs    *TransactionService
	dir    *DirectoryService
	logger *log.Logger
}

func NewExportService(txs *TransactionService, dir *DirectoryService) *ExportService {
	return &ExportService{txs: txs, dir: dir, logger: log.ForComponent(log.ComponentExport)}
}

// CSV exports every transaction matching filter that actor may see, in
// listing order. Paging fields of the filter are ignored.
func (s *ExportService) CSV(ctx context.Context, actor core.Actor, filter core.TransactionFilter) ([]byte, error) {
	rows, err := s.Rows(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return export.CSV(rows)
}

// XLSX is CSV rendered as a workbook.
func (s *ExportService) XLSX(ctx context.Context, actor core.Actor, filter core.TransactionFilter) ([]byte, error) {
	rows, err := s.Rows(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return export.XLSX(rows)
}

// Rows resolves account and category names, deactivated accounts included.
func (s *ExportService) Rows(ctx context.Context, actor core.Actor, filter core.TransactionFilter) ([]export.Row, error) {
	txs, err := s.txs.all(ctx, actor, core.ExportCSV, filter)
	if err != nil {
		return nil, err
	}
	dir, err := s.dir.Directory(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	rows := make([]export.Row, 0, len(txs))
	for _, t := range txs {
		account, ok := dir.Accounts[t.AccountID]
		if !ok {
			return nil, fmt.Errorf("export transaction %d: account %d missing from directory", t.ID, t.AccountID)
		}
		category, ok := dir.Categories[t.CategoryID]
		if !ok {
			return nil, fmt.Errorf("export transaction %d: category %d missing from directory", t.ID, t.CategoryID)
		}
		rows = append(rows, export.Row{
			OccurredOn: t.OccurredOn,
			Account:    account.Name,
			Category:   category.Name,
			Currency:   account.Currency,
			Amount:     t.Amount,
			Tags:       t.Tags,
			Note:       t.Note,
		})
	}

	s.logger.WithFields(actorFields(actor, log.OpExport)).
		InfoContext(ctx, "Exported transactions", log.FieldRows, len(rows))
	return rows, nil
}
