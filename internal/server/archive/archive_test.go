package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreHooks(t *testing.T) {
	t.Helper()
	origLoad, origNew, origPre, origPut, origUpload :=
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignPutObject, upload
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		newS3PresignClient = origPre
		presignPutObject = origPut
		upload = origUpload
	})
}

func TestNew_AppliesOptions(t *testing.T) {
	restoreHooks(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}
	var endpoint string
	var pathStyle bool
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var o s3.Options
		for _, fn := range optFns {
			fn(&o)
		}
		endpoint = aws.ToString(o.BaseEndpoint)
		pathStyle = o.UsePathStyle
		return &s3.Client{}
	}

	m, err := New(context.Background(), Options{
		Bucket: "media", Region: "eu-west-1", Endpoint: "http://127.0.0.1:9000",
		AccessKey: "minio", SecretKey: "minio123",
	})
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Equal(t, "http://127.0.0.1:9000", endpoint)
	assert.True(t, pathStyle)
}

func TestNew_LoadError(t *testing.T) {
	restoreHooks(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := New(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load aws config")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "chats/-1000000000042/7/abc", Key(-1000000000042, 7, "abc"))
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "artifact")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestPut_UploadsThroughPresignedURL(t *testing.T) {
	restoreHooks(t)

	var gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "media", aws.ToString(in.Bucket))
		assert.Equal(t, "chats/1/2/x", aws.ToString(in.Key))
		assert.Equal(t, "application/octet-stream", aws.ToString(in.ContentType))
		return &v4.PresignedHTTPRequest{URL: srv.URL + "/media/chats/1/2/x", Method: http.MethodPut}, nil
	}

	m := &Mirror{opts: Options{Bucket: "media", HTTPClient: srv.Client()}}
	uri, err := m.Put(context.Background(), "chats/1/2/x", writeFile(t, "payload"), 7, "")
	require.NoError(t, err)
	assert.Equal(t, "s3://media/chats/1/2/x", uri)
	assert.Equal(t, "payload", gotBody)
	assert.Equal(t, "application/octet-stream", gotType)
}

func TestPut_Errors(t *testing.T) {
	restoreHooks(t)
	m := &Mirror{opts: Options{Bucket: "media"}}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("signing failed")
	}
	_, err := m.Put(context.Background(), "k", writeFile(t, "x"), 1, "text/plain")
	require.ErrorContains(t, err, "presign k")

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "http://unused"}, nil
	}
	_, err = m.Put(context.Background(), "k", filepath.Join(t.TempDir(), "missing"), 1, "text/plain")
	require.Error(t, err)

	upload = func(ctx context.Context, client *http.Client, url string, body io.Reader, size int64, contentType string) error {
		return errors.New("403 Forbidden")
	}
	_, err = m.Put(context.Background(), "k", writeFile(t, "x"), 1, "text/plain")
	require.ErrorContains(t, err, "upload k")
}
