package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/vanta/internal/apierror"
	"github.com/jerry-enebeli/vanta/model"
)

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code.Name() == "unique_violation"
	}
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func (d Datasource) SaveLink(ctx context.Context, link *model.Link) (*model.Link, error) {
	metaDataJSON, err := json.Marshal(link.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	if link.LinkID == "" {
		link.LinkID = model.GenerateUUIDWithSuffix("lnk")
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	_, err = d.Conn.ExecContext(ctx, d.rebind(`
		INSERT INTO links (link_id, secret_key, address, symbol, mint, decimals, amount, status, tx_signature, last_error, meta_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), link.LinkID, link.SecretKey, link.Address, link.Symbol, link.Mint, link.Decimals,
		link.Amount.String(), link.Status, link.TxSignature, link.LastError, metaDataJSON, link.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Link with this ID already exists", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save link", err)
	}

	return link, nil
}

func (d Datasource) scanLink(row interface{ Scan(...interface{}) error }) (*model.Link, error) {
	link := model.Link{}
	var amountStr string
	var metaDataJSON []byte
	err := row.Scan(&link.ID, &link.LinkID, &link.SecretKey, &link.Address, &link.Symbol, &link.Mint,
		&link.Decimals, &amountStr, &link.Status, &link.TxSignature, &link.LastError, &metaDataJSON, &link.CreatedAt)
	if err != nil {
		return nil, err
	}

	link.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to parse stored amount", err)
	}
	if err := json.Unmarshal(metaDataJSON, &link.MetaData); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
	}
	return &link, nil
}

const linkColumns = `id, link_id, secret_key, address, symbol, mint, decimals, amount, status, tx_signature, last_error, meta_data, created_at`

func (d Datasource) GetLink(ctx context.Context, linkID string) (*model.Link, error) {
	row := d.Conn.QueryRowContext(ctx, d.rebind(`
		SELECT `+linkColumns+`
		FROM links
		WHERE link_id = ?
	`), linkID)

	link, err := d.scanLink(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Link not found", err)
		}
		if _, ok := err.(apierror.APIError); ok {
			return nil, err
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve link", err)
	}
	return link, nil
}

func (d Datasource) GetLinkByAddress(ctx context.Context, address string) (*model.Link, error) {
	row := d.Conn.QueryRowContext(ctx, d.rebind(`
		SELECT `+linkColumns+`
		FROM links
		WHERE address = ?
	`), address)

	link, err := d.scanLink(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Link not found", err)
		}
		if _, ok := err.(apierror.APIError); ok {
			return nil, err
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve link", err)
	}
	return link, nil
}

func (d Datasource) GetAllLinks(ctx context.Context, limit, offset int) ([]*model.Link, error) {
	rows, err := d.Conn.QueryContext(ctx, d.rebind(`
		SELECT `+linkColumns+`
		FROM links
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`), limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve links", err)
	}
	defer rows.Close()

	links := []*model.Link{}
	for rows.Next() {
		link, err := d.scanLink(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan link data", err)
		}
		links = append(links, link)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over links", err)
	}
	return links, nil
}

func (d Datasource) UpdateLinkStatus(ctx context.Context, linkID, status string) error {
	result, err := d.Conn.ExecContext(ctx, d.rebind(`
		UPDATE links
		SET status = ?
		WHERE link_id = ?
	`), status, linkID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update link status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Link not found", nil)
	}
	return nil
}

func (d Datasource) UpdateLinkOutcome(ctx context.Context, linkID, txSignature, lastError string) error {
	result, err := d.Conn.ExecContext(ctx, d.rebind(`
		UPDATE links
		SET tx_signature = ?, last_error = ?
		WHERE link_id = ?
	`), txSignature, lastError, linkID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update link outcome", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Link not found", nil)
	}
	return nil
}

func (d Datasource) RemoveLink(ctx context.Context, linkID string) error {
	result, err := d.Conn.ExecContext(ctx, d.rebind(`
		DELETE FROM links
		WHERE link_id = ?
	`), linkID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to remove link", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Link not found", nil)
	}
	return nil
}
