// Package storage archives committed import files to S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/Triaksa-Space/be-admin-console/domain/importer"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores uploads under imports/YYYY/MM/DD/<uuid>-<name>.
type S3Archiver struct {
	client putObjectAPI
	bucket string
	now    func() time.Time
}

func NewS3Archiver(cfg aws.Config, bucket string) *S3Archiver {
	return newS3Archiver(s3.NewFromConfig(cfg), bucket)
}

func newS3Archiver(client putObjectAPI, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, now: time.Now}
}

func (a *S3Archiver) Archive(ctx context.Context, filename string, data []byte) (string, error) {
	key := path.Join("imports", a.now().UTC().Format("2006/01/02"), uuid.NewString()+"-"+path.Base(filename))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(importer.ContentTypeFor(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}
