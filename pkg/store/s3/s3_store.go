package s3store

import (
	"bytes"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/moonwalker/assetwatch/pkg/store"
)

const (
	bucketRegion = "eu-central-1"
)

type s3store struct {
	sync.Mutex
	bucketName string

	s3 *s3.S3
}

func New(bucketName string) store.Store {
	return &s3store{bucketName: bucketName}
}

func (s *s3store) open() (err error) {
	s.Lock()
	defer s.Unlock()

	if s.s3 != nil {
		return
	}

	sess, err := session.NewSession()
	if err != nil {
		return
	}
	client := s3.New(sess)

	inp := &s3.CreateBucketInput{
		Bucket: aws.String(s.bucketName),
		CreateBucketConfiguration: &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(bucketRegion),
		},
	}

	_, err = client.CreateBucket(inp)

	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeBucketAlreadyOwnedByYou:
				err = nil
			}
		}
	}

	if err == nil {
		s.s3 = client
	}
	return
}

func (s *s3store) Get(key string) (val []byte, err error) {
	inp := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	err = s.open()
	if err != nil {
		return
	}

	out, err := s.s3.GetObject(inp)
	if err != nil {
		if notFound(err) {
			err = nil
		}
		return
	}
	defer out.Body.Close()

	val, err = io.ReadAll(out.Body)
	return
}

func (s *s3store) Set(key string, val []byte, options *store.WriteOptions) (err error) {
	inp := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(bytes.NewReader(val)),
		ContentType: aws.String("application/json"),
	}

	if options != nil {
		if len(options.ContentType) > 0 {
			inp.ContentType = aws.String(options.ContentType)
		}
	}

	err = s.open()
	if err != nil {
		return
	}

	_, err = s.s3.PutObject(inp)
	return
}

func (s *s3store) Delete(key string) (err error) {
	inp := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	err = s.open()
	if err != nil {
		return
	}

	_, err = s.s3.DeleteObject(inp)
	return
}

func (s *s3store) DeleteAll(prefix string) (err error) {
	keys, err := s.keys(prefix)
	if err != nil {
		return
	}

	for _, k := range keys {
		if err = s.Delete(k); err != nil {
			return
		}
	}
	return
}

func (s *s3store) Exists(key string) (bool, error) {
	err := s.open()
	if err != nil {
		return false, err
	}

	_, err = s.s3.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
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

func (s *s3store) Scan(prefix string, skip int, limit int, fn func(key string, val []byte)) (err error) {
	keys, err := s.keys(prefix)
	if err != nil {
		return
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
		fn(key, val)
	}
	return
}

func (s *s3store) Count(prefix string) int {
	keys, err := s.keys(prefix)
	if err != nil {
		return -1
	}
	return len(keys)
}

func (s *s3store) Close() (err error) {
	return // nothing to do here?
}

// keys lists object keys under prefix. S3 returns them in ascending order.
func (s *s3store) keys(prefix string) ([]string, error) {
	inp := &s3.ListObjectsInput{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	}

	if err := s.open(); err != nil {
		return nil, err
	}

	keys := make([]string, 0)
	err := s.s3.ListObjectsPages(inp, func(p *s3.ListObjectsOutput, last bool) bool {
		for _, obj := range p.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	return keys, err
}

func notFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
