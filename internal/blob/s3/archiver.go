package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quantbot/smartrouter/internal/domain"
)

// Archiver implements domain.Archiver. Each finalized execution is written
// as one JSON object under executions/YYYY/MM/DD/{routeID}.json so audit
// tooling can list a day's activity with a single prefix scan.
//
// Archive failures never affect routing: the router logs and moves on.
type Archiver struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewArchiver creates an Archiver writing to the client's bucket. An empty
// prefix defaults to "executions".
func NewArchiver(c *Client, prefix string) *Archiver {
	if prefix == "" {
		prefix = "executions"
	}
	return &Archiver{
		uploader: manager.NewUploader(c.S3()),
		bucket:   c.Bucket(),
		prefix:   prefix,
	}
}

// ArchiveResult serializes a finalized execution result and uploads it.
func (a *Archiver) ArchiveResult(ctx context.Context, res domain.ExecutionResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("s3blob: marshal execution %s: %w", res.RouteID, err)
	}

	key := fmt.Sprintf("%s/%s/%s.json", a.prefix, res.StartedAt.UTC().Format("2006/01/02"), res.RouteID)

	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload execution %s: %w", res.RouteID, err)
	}
	return nil
}
