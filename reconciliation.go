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

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/vanta/chain"
	"github.com/jerry-enebeli/vanta/model"
)

// RefreshLinkStatuses is the read-only display reconciliation pass. For every
// link not already CLAIMED or REFUNDED it reads the custody balance and fills
// the display-only Active and CustodyBalance fields: a balance above the dust
// threshold means the link is still claimable, at or below means it reads as
// claimed or exhausted. Lifecycle status is never mutated here; PENDING and
// PARTIAL classifications come only from the orchestrators.
func (l *Vanta) RefreshLinkStatuses(ctx context.Context) ([]*model.Link, error) {
	ctx, span := tracer.Start(ctx, "Refreshing link statuses")
	defer span.End()

	const batchSize = 100
	refreshed := []*model.Link{}
	for offset := 0; ; offset += batchSize {
		links, err := l.datasource.GetAllLinks(ctx, batchSize, offset)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			l.refreshLink(ctx, link)
			refreshed = append(refreshed, link)
		}
		if len(links) < batchSize {
			return refreshed, nil
		}
	}
}

func (l *Vanta) refreshLink(ctx context.Context, link *model.Link) {
	if link.Status == model.StatusClaimed || link.Status == model.StatusRefunded {
		return
	}
	balance, err := l.chain.GetBalance(ctx, link.Address)
	if err != nil {
		logrus.Warnf("failed to read custody balance for link %s: %v", link.LinkID, err)
		return
	}
	link.CustodyBalance = balance
	link.Active = balance > chain.DustThresholdLamports
}
