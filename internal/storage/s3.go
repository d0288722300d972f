package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/maauso/audiobook-skill/internal/session"
)

// DefaultS3Prefix is the key prefix used when S3Config.Prefix is empty.
const DefaultS3Prefix = "attributes/"

// ErrS3BucketRequired is returned when no bucket is configured.
var ErrS3BucketRequired = errors.New("storage: S3 bucket is required")

// Compile-time check that S3Storage implements AttributeStore.
var _ AttributeStore = (*S3Storage)(nil)

// S3Config holds the configuration for S3 storage.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string // Key prefix, DefaultS3Prefix when empty
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Storage keeps one JSON object per device in a bucket.
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Storage creates a new S3Storage instance.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, ErrS3BucketRequired
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			// S3-compatible servers often reject the newer default checksums.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		})
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultS3Prefix
	}

	return &S3Storage{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

func (s *S3Storage) key(deviceID string) string {
	return s.prefix + deviceKey(deviceID) + ".json"
}

// Load fetches the attributes object of deviceID. A missing object loads as
// zero Attributes.
func (s *S3Storage) Load(ctx context.Context, deviceID string) (session.Attributes, error) {
	var attrs session.Attributes
	if deviceID == "" {
		return attrs, ErrDeviceIDRequired
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(deviceID)),
	})
	if err != nil {
		if isMissingObject(err) {
			return attrs, nil
		}
		return attrs, fmt.Errorf("get attributes from S3: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return attrs, fmt.Errorf("read attributes from S3: %w", err)
	}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return session.Attributes{}, fmt.Errorf("decode attributes: %w", err)
	}
	return attrs, nil
}

// Save uploads the attributes object of deviceID.
func (s *S3Storage) Save(ctx context.Context, deviceID string, attrs session.Attributes) error {
	if deviceID == "" {
		return ErrDeviceIDRequired
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(deviceID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload attributes to S3: %w", err)
	}
	return nil
}

func isMissingObject(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || strings.EqualFold(code, "NotFound")
	}
	return false
}
