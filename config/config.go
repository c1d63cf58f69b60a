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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"VANTA_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"VANTA_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"VANTA_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"VANTA_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"VANTA_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"VANTA_SERVER_PORT"`
}

type DataSourceConfig struct {
	// Driver selects the link ledger backing store: "sqlite3" for a
	// sender-local file, "postgres" for a shared deployment.
	Driver string `json:"driver" envconfig:"VANTA_DATA_SOURCE_DRIVER"`
	Dns    string `json:"dns" envconfig:"VANTA_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"VANTA_REDIS_DNS"`
}

// ChainConfig points at the public ledger RPC endpoint.
type ChainConfig struct {
	RpcEndpoint string `json:"rpc_endpoint" envconfig:"VANTA_CHAIN_RPC_ENDPOINT"`
	// ShareOrigin is the public origin used to build claim URLs.
	ShareOrigin string `json:"share_origin" envconfig:"VANTA_SHARE_ORIGIN"`
}

// ComplianceConfig points at the external address risk-scoring service.
// Checks are fail-closed: any upstream failure blocks the operation.
type ComplianceConfig struct {
	Url     string `json:"url" envconfig:"VANTA_COMPLIANCE_URL"`
	ApiKey  string `json:"api_key" envconfig:"VANTA_COMPLIANCE_API_KEY"`
	Network string `json:"network" envconfig:"VANTA_COMPLIANCE_NETWORK"`
	Timeout int    `json:"timeout" envconfig:"VANTA_COMPLIANCE_TIMEOUT"`
}

// ShieldConfig points at the privacy transfer service.
type ShieldConfig struct {
	Url     string `json:"url" envconfig:"VANTA_SHIELD_URL"`
	ApiKey  string `json:"api_key" envconfig:"VANTA_SHIELD_API_KEY"`
	Timeout int    `json:"timeout" envconfig:"VANTA_SHIELD_TIMEOUT"`
	// AllowStaleFees permits hard-coded fallback values for per-asset
	// minimums and fee percentages when the live query fails. When false,
	// a failed fee query fails the operation instead.
	AllowStaleFees *bool `json:"allow_stale_fees" envconfig:"VANTA_SHIELD_ALLOW_STALE_FEES"`
}

// WalletConfig locates the sender's signing key for CLI and worker flows.
type WalletConfig struct {
	KeyFile string `json:"key_file" envconfig:"VANTA_WALLET_KEY_FILE"`
}

type RecoveryConfig struct {
	// AutoRecover lets the recovery worker refund PARTIAL links without an
	// explicit operator action. Off by default: moving funds is opt-in.
	AutoRecover  bool `json:"auto_recover" envconfig:"VANTA_RECOVERY_AUTO"`
	ScanInterval int  `json:"scan_interval" envconfig:"VANTA_RECOVERY_SCAN_INTERVAL"`
}

type QueueConfig struct {
	RecoveryQueue  string `json:"recovery_queue" envconfig:"VANTA_QUEUE_RECOVERY"`
	RefreshQueue   string `json:"refresh_queue" envconfig:"VANTA_QUEUE_REFRESH"`
	MonitoringPort string `json:"monitoring_port" envconfig:"VANTA_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"VANTA_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"VANTA_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"VANTA_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type S3Backup struct {
	AwsAccessKeyId     string `json:"aws_access_key_id"`
	AwsSecretAccessKey string `json:"aws_secret_access_key"`
	S3Endpoint         string `json:"s3_endpoint"`
	S3BucketName       string `json:"s3_bucket_name"`
	S3Region           string `json:"s3_region"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"VANTA_PROJECT_NAME"`
	BackupDir       string           `json:"backup_dir" envconfig:"VANTA_BACKUP_DIR"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"VANTA_ENABLE_TELEMETRY" default:"true"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Chain           ChainConfig      `json:"chain"`
	Compliance      ComplianceConfig `json:"compliance"`
	Shield          ShieldConfig     `json:"shield"`
	Wallet          WalletConfig     `json:"wallet"`
	Recovery        RecoveryConfig   `json:"recovery"`
	Queue           QueueConfig      `json:"queue"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
	S3              S3Backup         `json:"s3"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("vanta", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called vanta.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Vanta Server"
	}

	if cnf.DataSource.Driver == "" {
		cnf.DataSource.Driver = "sqlite3"
	}
	if cnf.DataSource.Driver != "sqlite3" && cnf.DataSource.Driver != "postgres" {
		return errors.New("data source driver must be sqlite3 or postgres")
	}

	if cnf.DataSource.Dns == "" {
		if cnf.DataSource.Driver == "sqlite3" {
			cnf.DataSource.Dns = "vanta.db"
			log.Println("Warning: Data source DNS is empty. Defaulting to local vanta.db")
		} else {
			log.Println("Error: Data source DNS is empty. It's a required field.")
			return errors.New("data source DNS is required")
		}
	}

	if cnf.Chain.RpcEndpoint == "" {
		cnf.Chain.RpcEndpoint = "https://api.mainnet-beta.solana.com"
	}
	if cnf.Chain.ShareOrigin == "" {
		cnf.Chain.ShareOrigin = "https://vanta.cash"
	}

	if cnf.Compliance.Network == "" {
		cnf.Compliance.Network = "solana"
	}
	if cnf.Compliance.Timeout == 0 {
		cnf.Compliance.Timeout = 15
	}
	if cnf.Compliance.Url == "" {
		cnf.Compliance.Url = "https://api.range.org/v1/risk/address"
	}

	if cnf.Shield.Timeout == 0 {
		cnf.Shield.Timeout = 60
	}
	if cnf.Shield.AllowStaleFees == nil {
		allow := true
		cnf.Shield.AllowStaleFees = &allow
	}

	if cnf.Queue.RecoveryQueue == "" {
		cnf.Queue.RecoveryQueue = "link-recovery"
	}
	if cnf.Queue.RefreshQueue == "" {
		cnf.Queue.RefreshQueue = "link-refresh"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5003"
	}
	if cnf.Recovery.ScanInterval == 0 {
		cnf.Recovery.ScanInterval = 300
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Chain.RpcEndpoint = strings.TrimSpace(cnf.Chain.RpcEndpoint)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if mockConfig.Shield.AllowStaleFees == nil {
		allow := true
		mockConfig.Shield.AllowStaleFees = &allow
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
