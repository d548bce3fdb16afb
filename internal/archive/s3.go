// Package archive stores the original uploaded statement files in S3 so a
// bookkeeper can always pull the source document behind an import.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	defaultBucket = "bookie-vision"
	defaultRegion = "us-east-1"
	keyPrefix     = "statements/"
)

func bucket() string {
	if b := strings.TrimSpace(os.Getenv("STATEMENT_S3_BUCKET")); b != "" {
		return b
	}
	return defaultBucket
}

func region() string {
	if r := strings.TrimSpace(os.Getenv("STATEMENT_S3_REGION")); r != "" {
		return r
	}
	return defaultRegion
}

// Enabled reads STATEMENT_S3_ENABLED. Archival is opt-in; local and test
// runs have no bucket.
func Enabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("STATEMENT_S3_ENABLED")))
	return v == "1" || v == "true" || v == "yes"
}

func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(s)
}

// Key derives the object key from the org and the file content, so the same
// upload always lands on the same object.
func Key(orgID, filename string, body []byte) string {
	sum := sha256.Sum256(body)
	ext := strings.ToLower(strings.TrimSpace(filenameExt(filename)))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s%s/%s%s", keyPrefix, sanitizeSegment(orgID), hex.EncodeToString(sum[:])[:32], ext)
}

func filenameExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// StoreOriginal uploads the raw file and returns the object key. Callers
// treat failures as non-fatal; the import itself has already succeeded.
func StoreOriginal(ctx context.Context, key string, body []byte) (string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region()))
	if err != nil {
		return "", fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	contentType := http.DetectContentType(body)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket()),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3 (bucket %s, key %s): %w", bucket(), key, err)
	}
	return key, nil
}
