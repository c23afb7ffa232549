package export

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"

	"github.com/lakehouse-reporting/systables/pkg/billing"
)

const (
	// KeyTimestampFormat names exported objects so keys sort by run time.
	// Fractional seconds are fixed width and keep repeated exports apart.
	KeyTimestampFormat = "20060102T150405.000000Z"

	// maxS3Keys is the maximum amount of keys to be returned by a single S3
	// list objects API response
	maxS3Keys = 200
)

// Object is an exported report in the bucket.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// S3Exporter writes report results to an S3 bucket under
// <prefix>/<report>/<timestamp>.<ext>.
type S3Exporter struct {
	Bucket string
	Prefix string

	logger logrus.FieldLogger
	s3     s3iface.S3API
}

// NewS3Exporter configures an S3 client from the environment's AWS
// credentials. An empty region uses the SDK's default resolution.
func NewS3Exporter(logger logrus.FieldLogger, region, bucket, prefix string) (*S3Exporter, error) {
	if bucket == "" {
		return nil, errors.New("export bucket cannot be empty")
	}
	awsSession, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("unable to create AWS session: %v", err)
	}
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	return NewS3ExporterWithClient(logger, s3.New(awsSession, cfg), bucket, prefix), nil
}

func NewS3ExporterWithClient(logger logrus.FieldLogger, client s3iface.S3API, bucket, prefix string) *S3Exporter {
	return &S3Exporter{
		Bucket: bucket,
		Prefix: strings.Trim(prefix, "/"),
		logger: logger.WithFields(logrus.Fields{"component": "s3Exporter", "bucket": bucket}),
		s3:     client,
	}
}

// Key returns the object key a result is exported to.
func (e *S3Exporter) Key(result *billing.Result, format string) string {
	name := result.RunAt.UTC().Format(KeyTimestampFormat) + "." + billing.FileExtension(format)
	return path.Join(e.Prefix, result.Report, name)
}

// Export writes result in format and returns the s3:// URL written to.
func (e *S3Exporter) Export(result *billing.Result, format string) (string, error) {
	var buf bytes.Buffer
	if err := billing.WriteResults(&buf, format, result); err != nil {
		return "", err
	}

	key := e.Key(result, format)
	_, err := e.s3.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(e.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(billing.ContentType(format)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to write 's3://%s/%s': %v", e.Bucket, key, err)
	}

	url := fmt.Sprintf("s3://%s/%s", e.Bucket, key)
	e.logger.WithField("report", result.Report).Infof("exported %d rows to %s", len(result.Rows), url)
	return url, nil
}

// List returns the exported objects for report, newest first.
func (e *S3Exporter) List(report string) ([]Object, error) {
	prefix := path.Join(e.Prefix, report) + "/"

	var objects []Object
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(e.Bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int64(maxS3Keys),
	}
	err := e.s3.ListObjectsV2Pages(input, func(output *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range output.Contents {
			objects = append(objects, Object{
				Key:          aws.StringValue(obj.Key),
				Size:         aws.Int64Value(obj.Size),
				LastModified: aws.TimeValue(obj.LastModified),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list S3 for 's3://%s/%s': %v", e.Bucket, prefix, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key > objects[j].Key })
	return objects, nil
}
