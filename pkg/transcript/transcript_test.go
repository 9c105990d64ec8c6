package transcript

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func sampleTranscript() *Transcript {
	started := time.Date(2026, time.March, 7, 23, 30, 0, 0, time.UTC)
	t := &Transcript{
		ID:         "7f1c",
		Action:     "/resize/i-1",
		ChannelURL: "wss://host/resize/i-1",
		Request:    "t3.large",
		StartedAt:  started,
	}
	t.Record(started.Add(time.Second), []byte(`{"Status":"message","Message":"stopping"}`))
	t.Record(started.Add(2*time.Second), []byte(`{"Status":"success","Message":"done"}`))
	t.Finish(started.Add(3*time.Second), "success", nil)
	return t
}

func TestKey(t *testing.T) {
	tr := sampleTranscript()
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "2026/03/07/7f1c.json"},
		{"resize", "resize/2026/03/07/7f1c.json"},
		{"resize/", "resize/2026/03/07/7f1c.json"},
	}
	for _, tt := range tests {
		if got := Key(tt.prefix, tr); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestKey_UsesUTCDate(t *testing.T) {
	loc := time.FixedZone("east", 10*60*60)
	tr := &Transcript{ID: "x", StartedAt: time.Date(2026, time.January, 1, 5, 0, 0, 0, loc)}
	if got := Key("", tr); got != "2025/12/31/x.json" {
		t.Errorf("Key = %q", got)
	}
}

func TestTranscript_FinishWithError(t *testing.T) {
	tr := &Transcript{ID: "x"}
	tr.Finish(time.Now(), "ambiguous", errors.New("closed"))
	if tr.Outcome != "ambiguous" || tr.Error != "closed" {
		t.Errorf("got outcome=%q error=%q", tr.Outcome, tr.Error)
	}

	var nilT *Transcript
	nilT.Record(time.Now(), []byte("x"))
	nilT.Finish(time.Now(), "success", nil)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	tr := sampleTranscript()
	if err := store.Save(context.Background(), tr); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tr.Frames[0].Raw = "mutated"
	got, err := store.Get(tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Frames[0].Raw == "mutated" {
		t.Error("store should keep its own copy of the frames")
	}
	if len(store.All()) != 1 {
		t.Errorf("All() = %d transcripts, want 1", len(store.All()))
	}
	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestDiskStore_SaveAndLoad(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	tr := sampleTranscript()
	if err := store.Save(context.Background(), tr); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(Key("", tr))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != tr.ID || got.Outcome != "success" || len(got.Frames) != 2 {
		t.Errorf("loaded %+v", got)
	}
	if got.Frames[1].Raw != `{"Status":"success","Message":"done"}` {
		t.Errorf("frame raw = %q", got.Frames[1].Raw)
	}

	if _, err := store.Load("2026/01/01/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) err = %v, want ErrNotFound", err)
	}
}

func TestDiskStore_CanceledContext(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Save(ctx, sampleTranscript()); !errors.Is(err, context.Canceled) {
		t.Errorf("Save err = %v, want context.Canceled", err)
	}
}

type fakePutObject struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutObject) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Save(t *testing.T) {
	client := &fakePutObject{}
	store := NewS3Store(client, "bucket", "archive")

	if err := store.Save(context.Background(), sampleTranscript()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("PutObject calls = %d, want 1", len(client.inputs))
	}
	in := client.inputs[0]
	if aws.ToString(in.Bucket) != "bucket" {
		t.Errorf("bucket = %q", aws.ToString(in.Bucket))
	}
	if aws.ToString(in.Key) != "archive/2026/03/07/7f1c.json" {
		t.Errorf("key = %q", aws.ToString(in.Key))
	}
	if aws.ToString(in.ContentType) != "application/json" {
		t.Errorf("content type = %q", aws.ToString(in.ContentType))
	}
	if in.Metadata["outcome"] != "success" {
		t.Errorf("metadata = %v", in.Metadata)
	}
	if !strings.Contains(client.bodies[0], `"request":"t3.large"`) {
		t.Errorf("body = %s", client.bodies[0])
	}
}

func TestS3Store_SaveError(t *testing.T) {
	client := &fakePutObject{err: errors.New("denied")}
	store := NewS3Store(client, "bucket", "")
	err := store.Save(context.Background(), sampleTranscript())
	if err == nil || !strings.Contains(err.Error(), "denied") {
		t.Errorf("Save err = %v", err)
	}
}

func TestMultiStore_JoinsErrors(t *testing.T) {
	mem := NewMemoryStore()
	failing := NewS3Store(&fakePutObject{err: errors.New("denied")}, "b", "")
	multi := MultiStore{failing, mem}

	err := multi.Save(context.Background(), sampleTranscript())
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if len(mem.All()) != 1 {
		t.Error("later stores should still be written after a failure")
	}
}

func TestNewS3Client(t *testing.T) {
	client := NewS3Client(S3Config{Region: "eu-west-1", Endpoint: "http://localhost:9000"})
	opts := client.Options()
	if opts.Region != "eu-west-1" {
		t.Errorf("region = %q", opts.Region)
	}
	if aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" || !opts.UsePathStyle {
		t.Errorf("endpoint = %q path style = %v", aws.ToString(opts.BaseEndpoint), opts.UsePathStyle)
	}
}
