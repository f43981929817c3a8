package lib

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactStore stores and removes uploaded images (event thumbnails, payment
// proofs). Store returns the reference later passed to Remove.
type ArtifactStore interface {
	Store(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Remove(ctx context.Context, ref string) error
}

var artifactStore ArtifactStore

func GetArtifactStore() ArtifactStore {
	if artifactStore != nil {
		return artifactStore
	}
	artifactStore = &S3ArtifactStore{}
	return artifactStore
}

// NewArtifactStore replaces the artifact store instance, used by tests
func NewArtifactStore(s ArtifactStore) ArtifactStore {
	artifactStore = s
	return artifactStore
}

var s3Client *s3.Client

func GetS3Client() *s3.Client {
	if s3Client != nil {
		return s3Client
	}
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Printf("Could not load default config: %s\n", err.Error())
		return nil
	}
	s3Client = s3.NewFromConfig(cfg)
	return s3Client
}

type S3ArtifactStore struct{}

func (s *S3ArtifactStore) Store(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	assetsBucket := os.Getenv("S3_ASSETS_BUCKET")
	client := GetS3Client()
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(assetsBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("Could not put object to S3 bucket: %s\n", err.Error())
		return "", err
	}
	err = s3.NewObjectExistsWaiter(client).Wait(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(assetsBucket),
		Key:    aws.String(key),
	}, time.Minute)
	if err != nil {
		log.Printf("Failed attempt to wait for object %s to exist: %s\n", key, err.Error())
		return "", err
	}
	log.Printf("Added object '%s' to bucket '%s'", key, assetsBucket)
	return key, nil
}

func (s *S3ArtifactStore) Remove(ctx context.Context, ref string) error {
	assetsBucket := os.Getenv("S3_ASSETS_BUCKET")
	client := GetS3Client()
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(assetsBucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		log.Printf("Could not delete object '%s' from S3 bucket: %s\n", ref, err.Error())
		return err
	}
	return nil
}

// S3PresignURL returns a temporary download URL for a stored artifact.
func S3PresignURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	assetsBucket := os.Getenv("S3_ASSETS_BUCKET")
	client := GetS3Client()
	if client == nil {
		return "", fmt.Errorf("s3 client unavailable")
	}
	pre := s3.NewPresignClient(client)
	r, err := pre.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(assetsBucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = expires
	})
	if err != nil {
		log.Printf("Could not presign object '%s': %s\n", key, err.Error())
		return "", err
	}
	return r.URL, nil
}
