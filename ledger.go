/*
Copyright 2025 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package vanta

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/vanta/internal/apierror"
	"github.com/jerry-enebeli/vanta/model"
)

// ExportDocument is the transferable form of the whole link ledger. It
// contains custody secrets: losing it means losing the ability to recover any
// PARTIAL or unclaimed COMPLETE link, and leaking it means leaking the funds.
type ExportDocument struct {
	Version    int           `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Links      []*model.Link `json:"links"`
}

const exportVersion = 1

// GetLink returns a single link by id.
func (l *Vanta) GetLink(ctx context.Context, linkID string) (*model.Link, error) {
	return l.datasource.GetLink(ctx, linkID)
}

// ListLinks returns links newest first.
func (l *Vanta) ListLinks(ctx context.Context, limit, offset int) ([]*model.Link, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.datasource.GetAllLinks(ctx, limit, offset)
}

// ExportLinks serializes the full ledger, newest first, into a single
// document for backup or cross-device transfer.
func (l *Vanta) ExportLinks(ctx context.Context) (*ExportDocument, error) {
	const batchSize = 200
	all := []*model.Link{}
	for offset := 0; ; offset += batchSize {
		links, err := l.datasource.GetAllLinks(ctx, batchSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, links...)
		if len(links) < batchSize {
			break
		}
	}
	return &ExportDocument{Version: exportVersion, ExportedAt: time.Now(), Links: all}, nil
}

// ImportLinks merges an export document into the ledger, de-duplicating by
// link id. Existing rows win: an import never overwrites local lifecycle
// state. Returns the number of rows added.
func (l *Vanta) ImportLinks(ctx context.Context, raw []byte) (int, error) {
	var doc ExportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "Malformed export document", err)
	}

	imported := 0
	for _, link := range doc.Links {
		if link.LinkID == "" || link.SecretKey == "" {
			logrus.Warn("skipping import row without id or custody key")
			continue
		}
		if _, err := l.datasource.GetLink(ctx, link.LinkID); err == nil {
			continue
		} else if apierror.CodeOf(err) != apierror.ErrNotFound {
			return imported, err
		}
		link.ID = 0
		if _, err := l.datasource.SaveLink(ctx, link); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
