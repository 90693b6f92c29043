/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package s3

import (
    "context"
    "errors"
    "fmt"
    "os"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/aws/aws-sdk-go/aws"
    "github.com/aws/aws-sdk-go/aws/session"
    "github.com/aws/aws-sdk-go/service/s3/s3manager"
    "github.com/rs/zerolog"
)

var ErrMissingUploadInput = errors.New("s3: file path, bucket and key are required")

// uploadAPI is the part of s3manager.Uploader the archiver needs.
type uploadAPI interface {
    UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// Archiver copies the exported file to a bucket after each run.
type Archiver struct {
    bucket   string
    key      string
    region   string
    uploader uploadAPI
    log      zerolog.Logger
}

func NewArchiver(cfg config.Config, log zerolog.Logger) *Archiver {
    return &Archiver{bucket: cfg.S3Bucket, key: cfg.S3Key, region: cfg.AWSRegion, log: log}
}

func (a *Archiver) Enabled() bool { return a.bucket != "" && a.key != "" }

func (a *Archiver) client() (uploadAPI, error) {
    if a.uploader != nil { return a.uploader, nil }
    awsCfg := aws.NewConfig()
    if a.region != "" { awsCfg = awsCfg.WithRegion(a.region) }
    sess, err := session.NewSession(awsCfg)
    if err != nil { return nil, fmt.Errorf("s3: session: %w", err) }
    a.uploader = s3manager.NewUploader(sess)
    return a.uploader, nil
}

// Upload sends filePath to s3://bucket/key and returns the object location.
func (a *Archiver) Upload(ctx context.Context, filePath string) (string, error) {
    if filePath == "" || !a.Enabled() { return "", ErrMissingUploadInput }
    up, err := a.client()
    if err != nil { return "", err }
    file, err := os.Open(filePath)
    if err != nil { return "", fmt.Errorf("s3: open %s: %w", filePath, err) }
    defer file.Close()

    res, err := up.UploadWithContext(ctx, &s3manager.UploadInput{
        Body:        file,
        Bucket:      aws.String(a.bucket),
        Key:         aws.String(a.key),
        ContentType: aws.String("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
    })
    if err != nil { return "", fmt.Errorf("s3: upload %s: %w", a.key, err) }
    a.log.Info().Str("location", res.Location).Msg("export archived")
    return res.Location, nil
}
