package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"horus-go/internal/horus"
)

// fakeS3 is an in-memory bucket implementing the calls S3Provider makes.
type fakeS3 struct {
	objects   map[string][]byte
	modified  time.Time
	bucketErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:  make(map[string][]byte),
		modified: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	seen := map[string]bool{}
	for _, k := range keys {
		rest := k[len(prefix):]
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+1]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
		if in.MaxKeys != nil && int32(len(out.Contents)) >= *in.MaxKeys {
			break
		}
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data))), LastModified: aws.Time(f.modified)}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Provider_WriteReadList(t *testing.T) {
	fake := newFakeS3()
	p := newS3Provider(fake, "bucket", "/projects/horus/", time.Second)

	if err := p.WriteFile("Ep01/sq0010/SH0010/.horus/SH0010_comments.json", []byte(`{"version":"1.0"}`)); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, ok := fake.objects["projects/horus/Ep01/sq0010/SH0010/.horus/SH0010_comments.json"]; !ok {
		t.Fatalf("object stored under unexpected keys: %v", fake.objects)
	}

	got, err := p.ReadFile("Ep01/sq0010/SH0010/.horus/SH0010_comments.json")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != `{"version":"1.0"}` {
		t.Errorf("ReadFile() = %q", got)
	}

	fake.objects["projects/horus/Ep01/sq0010/SH0020/comp/output/SH0020_comp_v001.mov"] = []byte("mov")
	entries, err := p.ListDirectory("Ep01/sq0010")
	if err != nil {
		t.Fatalf("ListDirectory() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "SH0010" || entries[1].Name != "SH0020" || !entries[0].IsDir {
		t.Errorf("ListDirectory() = %v, want [SH0010/ SH0020/]", entries)
	}
}

func TestS3Provider_Missing(t *testing.T) {
	p := newS3Provider(newFakeS3(), "bucket", "", time.Second)

	if _, err := p.ReadFile("nope.json"); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("ReadFile(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := p.ListDirectory("Ep09"); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("ListDirectory(missing) error = %v, want ErrNotFound", err)
	}
	root, err := p.ListDirectory("")
	if err != nil || len(root) != 0 {
		t.Errorf("ListDirectory(empty root) = %v, %v; want empty, nil", root, err)
	}
	exists, err := p.FileExists("nope.json")
	if err != nil || exists {
		t.Errorf("FileExists(missing) = %v, %v; want false, nil", exists, err)
	}
}

func TestS3Provider_GetFileInfo(t *testing.T) {
	fake := newFakeS3()
	fake.objects["Ep01/.horus/status/sq0010_status.json"] = []byte("{}")
	p := newS3Provider(fake, "bucket", "", time.Second)

	info, err := p.GetFileInfo("Ep01/.horus/status/sq0010_status.json")
	if err != nil {
		t.Fatalf("GetFileInfo() error = %v", err)
	}
	if info.Size != 2 || !info.ModTime.Equal(fake.modified) || info.IsDir {
		t.Errorf("GetFileInfo() = %+v", info)
	}

	dir, err := p.GetFileInfo("Ep01/.horus")
	if err != nil {
		t.Fatalf("GetFileInfo(dir) error = %v", err)
	}
	if !dir.IsDir {
		t.Error("GetFileInfo(dir).IsDir = false, want true")
	}
}

func TestS3Provider_Probe(t *testing.T) {
	fake := newFakeS3()
	p := newS3Provider(fake, "bucket", "", time.Second)
	if err := p.Probe(); err != nil {
		t.Errorf("Probe() error = %v", err)
	}

	fake.bucketErr = errors.New("no route to host")
	if err := p.Probe(); !errors.Is(err, horus.ErrConnection) {
		t.Errorf("Probe() error = %v, want ErrConnection", err)
	}

	if got := p.AbsolutePath("Ep01/a.mov"); got != "s3://bucket/Ep01/a.mov" {
		t.Errorf("AbsolutePath() = %q", got)
	}
}
