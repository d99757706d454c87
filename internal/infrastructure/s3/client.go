package s3infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tuition-notify/internal/config"
	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/infrastructure/awscfg"
)

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes archived notifications to a bucket.
type Store struct {
	client ObjectAPI
	bucket string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) *s3.Client {
	awsCfg, err := awscfg.Load(context.Background(), cfg, cfg.AWSRegion)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// NewStore creates a Store with the given S3 client and bucket name.
func NewStore(client ObjectAPI, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// ArchiveKey is the object key of an archived notification, partitioned by archive date.
func ArchiveKey(n *domain.Notification) string {
	at := n.CreatedAt
	if n.ArchivedAt != nil {
		at = *n.ArchivedAt
	}
	return fmt.Sprintf("notifications/%s/%s.json", at.UTC().Format("2006/01/02"), n.NotificationID)
}

// PutNotification uploads n as a JSON object and returns its s3:// location.
func (s *Store) PutNotification(ctx context.Context, n *domain.Notification) (string, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal notification %s: %w", n.NotificationID, err)
	}
	key := ArchiveKey(n)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w: %w", domain.ErrStore, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
