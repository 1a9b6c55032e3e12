package r2store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/moonwalker/assetwatch/pkg/store"
)

const (
	endpointFmt  = "https://%s.r2.cloudflarestorage.com"
	configRegion = "auto"
	opTimeout    = 10 * time.Second
)

type Options struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	// Endpoint replaces the account endpoint, for any S3 compatible service.
	Endpoint string
}

// r2store keeps one object per key in a Cloudflare R2 bucket.
type r2store struct {
	sync.Mutex
	opts Options

	client *s3.Client
}

func New(opts Options) store.Store {
	return &r2store{opts: opts}
}

func (s *r2store) open() (*s3.Client, error) {
	s.Lock()
	defer s.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	endpoint := s.opts.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(endpointFmt, s.opts.AccountID)
	}
	r2resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: endpoint,
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(configRegion),
		config.WithEndpointResolverWithOptions(r2resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.opts.AccessKeyID, s.opts.AccessKeySecret, "")),
	)
	if err != nil {
		return nil, err
	}

	s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = s.opts.Endpoint != ""
	})
	return s.client, nil
}

func (s *r2store) Get(key string) ([]byte, error) {
	client, err := s.open()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (s *r2store) Set(key string, val []byte, options *store.WriteOptions) error {
	client, err := s.open()
	if err != nil {
		return err
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.Concurrency = 1
		u.MaxUploadParts = 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType(val, options)),
		Body:        bytes.NewReader(val),
	})
	return err
}

func (s *r2store) Delete(key string) error {
	client, err := s.open()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *r2store) DeleteAll(prefix string) error {
	keys, err := s.keys(prefix)
	if err != nil {
		return err
	}

	client, err := s.open()
	if err != nil {
		return err
	}

	// DeleteObjects takes at most 1000 keys
	for start := 0; start < len(keys); start += 1000 {
		end := start + 1000
		if end > len(keys) {
			end = len(keys)
		}
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		_, err := client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.opts.Bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *r2store) Exists(key string) (bool, error) {
	client, err := s.open()
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if notFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *r2store) Scan(prefix string, skip int, limit int, fn func(key string, val []byte)) error {
	keys, err := s.keys(prefix)
	if err != nil {
		return err
	}

	for i, key := range keys {
		inside, done := store.Window(i, skip, limit)
		if done {
			break
		}
		if !inside {
			continue
		}

		val, err := s.Get(key)
		if err != nil {
			return err
		}
		if val != nil {
			fn(key, val)
		}
	}
	return nil
}

func (s *r2store) Count(prefix string) int {
	keys, err := s.keys(prefix)
	if err != nil {
		return -1
	}
	return len(keys)
}

func (s *r2store) Close() error {
	return nil
}

// keys lists object keys under prefix in ascending order.
func (s *r2store) keys(prefix string) ([]string, error) {
	client, err := s.open()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	p := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.opts.Bucket),
		Prefix: aws.String(prefix),
	})

	keys := make([]string, 0)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// contentType prefers the caller's content type and sniffs the value
// otherwise.
func contentType(val []byte, options *store.WriteOptions) string {
	if options != nil && len(options.ContentType) > 0 {
		return options.ContentType
	}
	return mimetype.Detect(val).String()
}

func notFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
