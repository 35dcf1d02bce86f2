package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/report"
)

func sample(id string) *report.Report {
	today := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	return &report.Report{
		ID:          id,
		Today:       today,
		DayNew:      today.AddDate(0, 0, -1),
		DayOld:      today.AddDate(0, 0, -2),
		GeneratedAt: today.Add(9 * time.Hour),
		Actions:     []domain.ActionItem{{OfferID: "101", Rule: domain.RuleKeepSending}},
	}
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SaveReport(ctx, sample("r-1")))
	got, err := s.GetReport(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", got.ID)
	assert.True(t, got.Today.Equal(sample("r-1").Today))
	require.Len(t, got.Actions, 1)

	_, err = s.GetReport(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetReport(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, s.SaveReport(ctx, sample("../x")))
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{Type: "none"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(context.Background(), config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type fakeDynamo struct {
	items map[string]map[string]types.AttributeValue
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	pk := in.Item["PK"].(*types.AttributeValueMemberS).Value
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	pk := in.Key["PK"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[pk]}, nil
}

func TestAWSStore(t *testing.T) {
	ctx := context.Background()
	s3c := &fakeS3{objects: map[string][]byte{}}
	ddb := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	s := NewAWSStoreWithClients(s3c, ddb, "bucket", "runs", 90)

	rep := sample("r-2")
	require.NoError(t, s.SaveReport(ctx, rep))
	assert.Contains(t, s3c.objects, "reports/2026/10/14/r-2.json")

	item := ddb.items["REPORT#r-2"]
	require.NotNil(t, item)
	assert.Equal(t, "2026-10-13", item["DayNew"].(*types.AttributeValueMemberS).Value)
	assert.Contains(t, item, "TTL")

	got, err := s.GetReport(ctx, "r-2")
	require.NoError(t, err)
	assert.Equal(t, rep.ID, got.ID)

	_, err = s.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	backing := NewMemoryStore()
	cache := NewRedisCache(client, time.Minute)
	s := NewCachedStore(backing, cache)

	require.NoError(t, s.SaveReport(ctx, sample("r-3")))
	assert.True(t, mr.Exists("offerdiag:report:r-3"))
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("offerdiag:report:r-3"), "entries expire")

	got, err := s.GetReport(ctx, "r-3")
	require.NoError(t, err)
	assert.Equal(t, "r-3", got.ID)
	assert.True(t, mr.Exists("offerdiag:report:r-3"), "miss refills the cache")

	miss, err := cache.Get(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, miss)

	// a dead cache degrades to the backing store
	mr.Close()
	got, err = s.GetReport(ctx, "r-3")
	require.NoError(t, err)
	assert.Equal(t, "r-3", got.ID)
	_, err = s.GetReport(ctx, "none")
	assert.ErrorIs(t, err, ErrNotFound)
}
