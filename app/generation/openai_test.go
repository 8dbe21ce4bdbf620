package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeStore struct {
	putFn func(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return f.putFn(ctx, key, data, contentType)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc, store Store) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider(srv.URL, "sk", "gpt-image-1", "1024x1536", time.Second, store)
}

func TestOpenAIProviderReturnsURL(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(raw), `"size":"1024x1536"`) {
			t.Errorf("expected default size in body: %s", raw)
		}
		_, _ = w.Write([]byte(`{"data":[{"url":"https://img/1.png"}]}`))
	}, nil)

	img, err := provider.Generate(context.Background(), Request{Prompt: "a phone"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.URL != "https://img/1.png" || img.Provider != "openai" {
		t.Fatalf("unexpected image: %+v", img)
	}
}

func TestOpenAIProviderStoresBase64(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	var storedKey string
	store := &fakeStore{putFn: func(_ context.Context, key string, data []byte, contentType string) (string, error) {
		if string(data) != "png-bytes" || contentType != "image/png" {
			t.Fatalf("unexpected upload: %q %s", data, contentType)
		}
		storedKey = key
		return "https://cdn/" + key, nil
	}}
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"` + payload + `"}]}`))
	}, store)

	img, err := provider.Generate(context.Background(), Request{Prompt: "a phone", Size: "1024x1024"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(storedKey, "generated/") || img.URL != "https://cdn/"+storedKey {
		t.Fatalf("unexpected image url %s for key %s", img.URL, storedKey)
	}
}

func TestOpenAIProviderFallsBackToDataURL(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"aGVsbG8="}]}`))
	}, nil)

	img, err := provider.Generate(context.Background(), Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.URL != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("unexpected url: %s", img.URL)
	}
}

func TestOpenAIProviderErrors(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"content policy"}}`))
	}, nil)

	_, err := provider.Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, ErrProvider) || !strings.Contains(err.Error(), "content policy") {
		t.Fatalf("expected provider error, got %v", err)
	}

	if _, err := provider.Generate(context.Background(), Request{Prompt: "  "}); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}

	unconfigured := NewOpenAIProvider("http://unused", "", "m", "", time.Second, nil)
	if _, err := unconfigured.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, ErrProviderNotConfigured) {
		t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
	}
}

type fakePutter struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorePut(t *testing.T) {
	putter := &fakePutter{}
	store := newS3Store(putter, "mockups", "https://cdn.example.com")

	url, err := store.Put(context.Background(), "generated/a.png", []byte("abc"), "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn.example.com/generated/a.png" {
		t.Fatalf("unexpected url: %s", url)
	}
	if *putter.input.Bucket != "mockups" || *putter.input.Key != "generated/a.png" || *putter.input.ContentLength != 3 {
		t.Fatalf("unexpected put input: %+v", putter.input)
	}

	putter.err = errors.New("denied")
	if _, err := store.Put(context.Background(), "k", nil, "image/png"); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3StoreConfig{}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}
