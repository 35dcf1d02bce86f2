package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/report"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// RunItem indexes one report in DynamoDB; the body lives in S3.
type RunItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	ObjectKey   string `dynamodbav:"ObjectKey"`
	Today       string `dynamodbav:"Today"`
	DayNew      string `dynamodbav:"DayNew,omitempty"`
	DayOld      string `dynamodbav:"DayOld,omitempty"`
	Actions     int    `dynamodbav:"Actions"`
	GeneratedAt string `dynamodbav:"GeneratedAt"`
	TTL         int64  `dynamodbav:"TTL,omitempty"`
}

const runSK = "RUN"

// AWSStore stores report JSON in S3 and a run index item in DynamoDB.
type AWSStore struct {
	s3        S3API
	dynamo    DynamoAPI
	bucket    string
	tableName string
	retention time.Duration
}

// NewAWSStore loads the default credential chain, or the configured profile.
func NewAWSStore(ctx context.Context, cfg config.StorageConfig) (*AWSStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if profile := cfg.GetAWSProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewAWSStoreWithClients(s3.NewFromConfig(awsCfg), dynamodb.NewFromConfig(awsCfg),
		cfg.S3Bucket, cfg.DynamoDBTable, cfg.RetentionDays), nil
}

func NewAWSStoreWithClients(s3c S3API, ddb DynamoAPI, bucket, table string, retentionDays int) *AWSStore {
	return &AWSStore{
		s3:        s3c,
		dynamo:    ddb,
		bucket:    bucket,
		tableName: table,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// ObjectKey is reports/YYYY/MM/DD/<id>.json by report day.
func ObjectKey(rep *report.Report) string {
	return fmt.Sprintf("reports/%s/%s.json", rep.Today.Format("2006/01/02"), rep.ID)
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

func (s *AWSStore) SaveReport(ctx context.Context, rep *report.Report) error {
	if err := validID(rep.ID); err != nil {
		return err
	}
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	key := ObjectKey(rep)
	if _, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}

	item := RunItem{
		PK:          "REPORT#" + rep.ID,
		SK:          runSK,
		ObjectKey:   key,
		Today:       dateOrEmpty(rep.Today),
		DayNew:      dateOrEmpty(rep.DayNew),
		DayOld:      dateOrEmpty(rep.DayOld),
		Actions:     len(rep.Actions),
		GeneratedAt: rep.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if s.retention > 0 {
		item.TTL = rep.GeneratedAt.Add(s.retention).Unix()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}
	if _, err := s.dynamo.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

func (s *AWSStore) GetReport(ctx context.Context, id string) (*report.Report, error) {
	if err := validID(id); err != nil {
		return nil, ErrNotFound
	}
	out, err := s.dynamo.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "REPORT#" + id},
			"SK": &types.AttributeValueMemberS{Value: runSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting item from DynamoDB: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var item RunItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling item: %w", err)
	}

	obj, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(item.ObjectKey),
	})
	if err != nil {
		var missing *s3types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("unmarshaling S3 data: %w", err)
	}
	return &rep, nil
}
