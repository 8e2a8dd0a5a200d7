package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return errors.New("put failed")
	}
	f.objects[key] = body
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &storage.Object{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentType:   f.types[key],
		ContentLength: int64(len(body)),
	}, nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			if idx := strings.LastIndex(key, "/"); idx >= 0 {
				names = append(names, key[idx+1:])
			} else {
				names = append(names, key)
			}
		}
	}
	return names, nil
}

func (f *fakeStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys
}

func testService(store storage.ObjectStore) *Service {
	policy := storage.NewKeyPolicy(storage.StrategyOpaque, "https://cdn.example.com")
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewService(store, policy, logger)
}

func TestUploadProjectFiles(t *testing.T) {
	store := newFakeStore()
	svc := testService(store)

	models := []FileUpload{
		{Name: "wheel.glb", ContentType: "model/gltf-binary", Data: []byte("wheel")},
		{Name: "frame.glb", ContentType: "model/gltf-binary", Data: []byte("frame")},
		{Name: "seat.glb", ContentType: "model/gltf-binary", Data: []byte("seat")},
	}
	meta := FileUpload{Name: "meta_data.json", ContentType: "application/json", Data: []byte(`{"a":1}`)}

	loc, err := svc.UploadProjectFiles(context.Background(), "p1", models, meta)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/projects/p1/models", loc.ModelFolderURL)
	assert.True(t, strings.HasPrefix(loc.MetadataFileURL, "https://cdn.example.com/projects/p1/data/"))
	assert.Len(t, store.keys(), 4, "every model plus the metadata document must be stored")

	for _, key := range store.keys() {
		assert.True(t, strings.HasPrefix(key, "projects/p1/"))
	}
}

func TestUploadProjectFiles_OnePutFails(t *testing.T) {
	store := newFakeStore()
	store.failOn = "data/"
	svc := testService(store)

	models := []FileUpload{{Name: "wheel.glb", Data: []byte("wheel")}}
	meta := FileUpload{Name: "meta_data.json", Data: []byte("{}")}

	loc, err := svc.UploadProjectFiles(context.Background(), "p1", models, meta)
	require.Error(t, err)
	assert.Equal(t, Location{}, loc, "a failed batch must not report a location")
}

func TestUploadAdditionalFiles_ModelsOnly(t *testing.T) {
	store := newFakeStore()
	svc := testService(store)

	models := []FileUpload{{Name: "door.glb", Data: []byte("door")}}

	loc, err := svc.UploadAdditionalFiles(context.Background(), "p1", models, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/projects/p1/models", loc.ModelFolderURL)
	assert.Empty(t, loc.MetadataFileURL, "no metadata side, no metadata url")
	assert.Len(t, store.keys(), 1)
}

func TestUploadAdditionalFiles_MetadataOnly(t *testing.T) {
	store := newFakeStore()
	svc := testService(store)

	meta := &FileUpload{Name: "meta_data.json", Data: []byte("{}")}

	loc, err := svc.UploadAdditionalFiles(context.Background(), "p1", nil, meta)
	require.NoError(t, err)

	assert.Empty(t, loc.ModelFolderURL)
	assert.True(t, strings.HasPrefix(loc.MetadataFileURL, "https://cdn.example.com/projects/p1/data/"))
}

func TestUploadAdditionalFiles_Empty(t *testing.T) {
	store := newFakeStore()
	svc := testService(store)

	loc, err := svc.UploadAdditionalFiles(context.Background(), "p1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, Location{}, loc)
	assert.Empty(t, store.keys(), "empty batch must not touch the store")
}

func TestListProjectFiles(t *testing.T) {
	store := newFakeStore()
	svc := testService(store)

	_, err := svc.UploadProjectFiles(context.Background(), "p1",
		[]FileUpload{{Name: "wheel.glb", Data: []byte("wheel")}},
		FileUpload{Name: "meta_data.json", Data: []byte("{}")})
	require.NoError(t, err)

	names, err := svc.ListProjectFiles(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestFetchProjectFile(t *testing.T) {
	store := newFakeStore()
	store.objects["projects/p1/models/a.glb"] = []byte("payload")
	store.types["projects/p1/models/a.glb"] = "model/gltf-binary"
	svc := testService(store)

	obj, err := svc.FetchProjectFile(context.Background(), "p1", "models/a.glb")
	require.NoError(t, err)
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, "model/gltf-binary", obj.ContentType)
}
