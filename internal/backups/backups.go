// Package backups persists link-ledger export documents to disk and S3. The
// export document contains custody secrets, so a lost backup means lost
// recovery ability and a leaked one means leaked funds; bucket policy is the
// operator's responsibility.
package backups

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jerry-enebeli/vanta/config"
)

// BackupToDisk writes an export document under the configured backup
// directory, grouped by date. Returns the written path.
func BackupToDisk(document []byte) (string, error) {
	conf, err := config.Fetch()
	if err != nil {
		return "", err
	}

	today := time.Now().Format("2006-01-02")
	currentTime := time.Now().Format("150405")
	backupDir := filepath.Join(conf.BackupDir, today)

	if err := os.MkdirAll(backupDir, 0o700); err != nil {
		return "", err
	}

	backupFilePath := filepath.Join(backupDir, fmt.Sprintf("vanta-links-%s.json", currentTime))
	if err := os.WriteFile(backupFilePath, document, 0o600); err != nil {
		return "", err
	}

	fmt.Printf("Backup successful: %s\n", backupFilePath)
	return backupFilePath, nil
}

// BackupToS3 writes the export document to disk and uploads it to the
// configured bucket, keyed by date and time.
func BackupToS3(ctx context.Context, document []byte) error {
	cnf, err := config.Fetch()
	if err != nil {
		return err
	}

	backupFilePath, err := BackupToDisk(document)
	if err != nil {
		return err
	}

	itemKey := filepath.Base(backupFilePath)
	if err := uploadToS3(ctx, document, cnf.S3.S3BucketName, itemKey, cnf.S3.AwsAccessKeyId, cnf.S3.AwsSecretAccessKey, cnf.S3.S3Region); err != nil {
		return err
	}

	fmt.Println("Ledger export", itemKey, "uploaded to S3.")
	return nil
}

func uploadToS3(ctx context.Context, document []byte, bucketName, itemKey, accessKeyID, secretAccessKey, region string) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return err
	}

	client := s3.NewFromConfig(cfg)

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(itemKey),
		Body:   bytes.NewReader(document),
	})
	return err
}
