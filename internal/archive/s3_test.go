package archive

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestArchiveKeyLayout(t *testing.T) {
	fake := &fakePutter{}
	a := newS3Archiver(fake, "bucket", "/photos/")
	a.now = func() time.Time { return time.Date(2026, 5, 4, 23, 0, 0, 0, time.UTC) }

	key, err := a.Archive(context.Background(), "../user/1", pngHeader)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "photos/.._user_1/2026-05-04/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "bucket", aws.ToString(fake.input.Bucket))
	assert.Equal(t, key, aws.ToString(fake.input.Key))
	assert.Equal(t, "image/png", aws.ToString(fake.input.ContentType))
	assert.Equal(t, pngHeader, fake.body)
}

func TestArchiveDefaultsAndErrors(t *testing.T) {
	fake := &fakePutter{err: errors.New("access denied")}
	a := newS3Archiver(fake, "bucket", "")

	_, err := a.Archive(context.Background(), "", []byte("plain"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(aws.ToString(fake.input.Key), "supplement-images/_/"))
	assert.True(t, strings.HasSuffix(aws.ToString(fake.input.Key), ".bin"))

	_, err = NewS3Archiver(context.Background(), Config{})
	assert.Error(t, err)
}
