package mockexport

import (
	"fmt"
	"io/ioutil"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

func NewMockS3() *MockS3 {
	return &MockS3{
		buckets: map[string]map[string]mockObject{},
	}
}

type mockObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MockS3 mimics an S3 blob store for testing.
type MockS3 struct {
	sync.RWMutex
	buckets map[string]map[string]mockObject
	// PutErr, when set, fails every PutObject call.
	PutErr error
	s3iface.S3API
}

func (m *MockS3) PutObject(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	if m.PutErr != nil {
		return nil, m.PutErr
	}
	data, err := ioutil.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	m.Lock()
	defer m.Unlock()

	bucket, ok := m.buckets[*in.Bucket]
	if !ok {
		bucket = map[string]mockObject{}
		m.buckets[*in.Bucket] = bucket
	}

	bucket[*in.Key] = mockObject{
		data:        data,
		contentType: aws.StringValue(in.ContentType),
		modified:    time.Now().UTC(),
	}
	return &s3.PutObjectOutput{}, nil
}

// Object returns the body and content type stored at key.
func (m *MockS3) Object(bucket, key string) ([]byte, string, error) {
	m.RLock()
	defer m.RUnlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return nil, "", fmt.Errorf("bucket '%s' does not exist", bucket)
	}
	obj, ok := b[key]
	if !ok {
		return nil, "", fmt.Errorf("key '%s' does not exist in bucket '%s'", key, bucket)
	}
	return obj.data, obj.contentType, nil
}

func (m *MockS3) ListObjectsV2Pages(in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool) error {
	m.RLock()
	defer m.RUnlock()

	bucket, ok := m.buckets[*in.Bucket]
	if !ok {
		return fmt.Errorf("bucket '%s' does not exist", *in.Bucket)
	}

	var keys []string
	for key := range bucket {
		if strings.HasPrefix(key, aws.StringValue(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var objects []*s3.Object
	for _, key := range keys {
		obj := bucket[key]
		objects = append(objects, &s3.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	out := new(s3.ListObjectsV2Output)
	out.SetContents(objects)
	fn(out, true)
	return nil
}
