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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/vanta"
	"github.com/jerry-enebeli/vanta/config"
	redis_db "github.com/jerry-enebeli/vanta/internal/redis-db"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

// processRecoveryScan handles a recovery task from the queue. A task carrying
// a link id recovers that single link; an empty payload scans the whole
// ledger for stranded links.
func (v *vantaInstance) processRecoveryScan(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("vanta.links.worker").Start(ctx, "Process Recovery Scan From Redis Queue")
	defer span.End()

	var payload vanta.RecoveryTaskPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logrus.Error(err)
			return err
		}
	}

	if payload.LinkID == "" {
		if err := v.vanta.ScanStrandedLinks(ctx); err != nil {
			return err
		}
		log.Println(" [*] Recovery Scan Complete")
		return nil
	}

	link, err := v.vanta.GetLink(ctx, payload.LinkID)
	if err != nil {
		return err
	}
	if !v.cnf.Recovery.AutoRecover {
		logrus.Infof("link %s flagged for recovery, auto-recover disabled", link.LinkID)
		return nil
	}
	sender, _ := link.MetaData["sender"].(string)
	if sender == "" {
		return fmt.Errorf("link %s has no recorded sender to refund", link.LinkID)
	}
	if _, err := v.vanta.RefundLink(ctx, link.LinkID, sender); err != nil {
		return err
	}

	log.Println(" [*] Link Recovered", link.LinkID)
	return nil
}

// processStatusRefresh runs the read-only reconciliation pass.
func (v *vantaInstance) processStatusRefresh(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("vanta.links.worker").Start(ctx, "Process Status Refresh From Redis Queue")
	defer span.End()

	links, err := v.vanta.RefreshLinkStatuses(ctx)
	if err != nil {
		return err
	}

	log.Printf(" [*] Link Statuses Refreshed (%d links)", len(links))
	return nil
}

func initializeQueues(conf *config.Configuration) map[string]int {
	queues := make(map[string]int)
	queues[conf.Queue.RecoveryQueue] = 3
	queues[conf.Queue.RefreshQueue] = 1
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(v *vantaInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(vanta.RecoveryTaskType, v.processRecoveryScan)
	mux.HandleFunc(vanta.RefreshTaskType, v.processStatusRefresh)
}

// scheduleRecoveryScans enqueues a ledger-wide recovery scan and a status
// refresh on the configured interval.
func scheduleRecoveryScans(ctx context.Context, queue *vanta.Queue, intervalSec int) {
	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	go func() {
		for range ticker.C {
			if err := queue.EnqueueRecoveryScan(ctx, ""); err != nil {
				logrus.Errorf("failed to enqueue recovery scan: %v", err)
			}
			if err := queue.EnqueueStatusRefresh(ctx); err != nil {
				logrus.Errorf("failed to enqueue status refresh: %v", err)
			}
		}
	}()
}

// workerCommands defines the "workers" command to start worker processes.
// The workers listen to the recovery and refresh queues and periodically
// enqueue ledger-wide scans.
func workerCommands(v *vantaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start vanta workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			queues := initializeQueues(conf)

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(v, mux)

			queue := vanta.NewQueue(conf)
			if queue == nil {
				log.Fatal("workers require a configured redis instance")
			}
			scheduleRecoveryScans(ctx, queue, conf.Recovery.ScanInterval)

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
