package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/unipost/unipost-api/configs"
)

// AssetsService stores uploaded media in Cloudflare R2 and hands back the
// public URL the network adapters will point the providers at.
type AssetsService struct {
	cfg config.Config
}

func NewAssetsService(cfg config.Config) *AssetsService {
	return &AssetsService{cfg: cfg}
}

func (s *AssetsService) r2Client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.cfg.R2.AccessKey, s.cfg.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.cfg.R2.AccountID))
	}), nil
}

// Upload stores the file under a random key and returns its public URL.
func (s *AssetsService) Upload(ctx context.Context, file []byte, contentType, extension string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	key := id
	if extension != "" {
		key = id + "." + strings.TrimPrefix(extension, ".")
	}

	client, err := s.r2Client(ctx)
	if err != nil {
		return "", err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.cfg.R2.PublicURL, "/"), key), nil
}
