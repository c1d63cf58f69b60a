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
	"log"

	"github.com/hibiken/asynq"

	"github.com/jerry-enebeli/vanta/config"
	redis_db "github.com/jerry-enebeli/vanta/internal/redis-db"
)

const (
	// RecoveryTaskType scans for PARTIAL links and notifies or refunds.
	RecoveryTaskType = "link:recover"
	// RefreshTaskType runs the read-only status reconciliation pass.
	RefreshTaskType = "link:refresh"
)

// Queue represents a queue for handling background link maintenance tasks.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector

	recoveryQueue string
	refreshQueue  string
}

// RecoveryTaskPayload identifies the link a recovery task should inspect.
// An empty LinkID means "scan everything".
type RecoveryTaskPayload struct {
	LinkID string `json:"link_id"`
}

// NewQueue initializes a Queue from configuration. Returns nil when no redis
// address is configured; sender-local CLI sessions run without a queue.
func NewQueue(conf *config.Configuration) *Queue {
	if conf.Redis.Dns == "" {
		return nil
	}
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB}
	return &Queue{
		Client:        asynq.NewClient(queueOptions),
		Inspector:     asynq.NewInspector(queueOptions),
		recoveryQueue: conf.Queue.RecoveryQueue,
		refreshQueue:  conf.Queue.RefreshQueue,
	}
}

// EnqueueRecoveryScan schedules a recovery inspection. Pass an empty linkID
// to scan the whole ledger for stranded links.
func (q *Queue) EnqueueRecoveryScan(ctx context.Context, linkID string) error {
	payload, err := json.Marshal(RecoveryTaskPayload{LinkID: linkID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(RecoveryTaskType, payload)
	info, err := q.Client.EnqueueContext(ctx, task, asynq.Queue(q.recoveryQueue))
	if err != nil {
		return err
	}
	log.Printf("enqueued recovery scan: id=%s queue=%s", info.ID, info.Queue)
	return nil
}

// EnqueueStatusRefresh schedules a reconciliation pass over the ledger.
func (q *Queue) EnqueueStatusRefresh(ctx context.Context) error {
	task := asynq.NewTask(RefreshTaskType, nil)
	info, err := q.Client.EnqueueContext(ctx, task, asynq.Queue(q.refreshQueue))
	if err != nil {
		return err
	}
	log.Printf("enqueued status refresh: id=%s queue=%s", info.ID, info.Queue)
	return nil
}
