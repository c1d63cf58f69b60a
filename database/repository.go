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

package database

import (
	"context"

	"github.com/jerry-enebeli/vanta/model"
)

// IDataSource defines the interface for data source operations.
type IDataSource interface {
	link
}

// link defines methods for the durable link ledger.
type link interface {
	SaveLink(ctx context.Context, link *model.Link) (*model.Link, error)                // Persists a new link record
	GetLink(ctx context.Context, linkID string) (*model.Link, error)                    // Retrieves a link by ID
	GetLinkByAddress(ctx context.Context, address string) (*model.Link, error)          // Retrieves a link by its custody address
	GetAllLinks(ctx context.Context, limit, offset int) ([]*model.Link, error)          // Retrieves links newest first
	UpdateLinkStatus(ctx context.Context, linkID, status string) error                  // Advances a link's lifecycle status
	UpdateLinkOutcome(ctx context.Context, linkID, txSignature, lastError string) error // Records the settlement outcome of a link
	RemoveLink(ctx context.Context, linkID string) error                                // Deletes a link record outright
}
