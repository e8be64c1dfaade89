package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/cfdi-sentinel/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDirectorySource_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.xml"), "<b/>")
	writeFile(t, filepath.Join(dir, "a.XML"), "<a/>")
	writeFile(t, filepath.Join(dir, "nested", "c.xml"), "<c/>")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	logger := logging.NewMockLogger()

	inputs, err := NewDirectorySource(dir, "transporte", logger).Load(context.Background())

	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Equal(t, "a.XML", inputs[0].FileName)
	assert.Equal(t, "b.xml", inputs[1].FileName)
	assert.Equal(t, "c.xml", inputs[2].FileName)
	assert.Equal(t, []byte("<a/>"), inputs[0].Data)
	assert.Equal(t, "transporte", inputs[2].Activity)
	assert.True(t, logger.HasEntry("INFO", "Loaded documents from directory"))
}

func TestDirectorySource_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.xml")
	writeFile(t, path, "<one/>")

	inputs, err := NewDirectorySource(path, "", nil).Load(context.Background())

	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "one.xml", inputs[0].FileName)
}

func TestDirectorySource_MissingPath(t *testing.T) {
	_, err := NewDirectorySource(filepath.Join(t.TempDir(), "nope"), "", nil).Load(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

type fakeBucket struct {
	objects map[string]string
	listErr error
	getErr  map[string]error
}

func (b *fakeBucket) List(_ context.Context, prefix string) ([]string, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *fakeBucket) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if err := b.getErr[key]; err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(b.objects[key])), nil
}

func TestMinioSource_Load(t *testing.T) {
	store := &fakeBucket{
		objects: map[string]string{
			"acme/2023/05/b.xml":   "<b/>",
			"acme/2023/05/a.xml":   "<a/>",
			"acme/2023/05/img.png": "png",
			"other/x.xml":          "<x/>",
			"acme/2023/06/bad.xml": "",
		},
		getErr: map[string]error{"acme/2023/06/bad.xml": errors.New("access denied")},
	}
	logger := logging.NewMockLogger()

	inputs, err := newMinioSource(store, "acme/", "consultoria", logger).Load(context.Background())

	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Equal(t, "a.xml", inputs[0].FileName)
	assert.Equal(t, []byte("<a/>"), inputs[0].Data)
	assert.Equal(t, "b.xml", inputs[1].FileName)
	assert.Equal(t, "bad.xml", inputs[2].FileName)
	assert.Empty(t, inputs[2].Data)
	assert.Equal(t, "consultoria", inputs[1].Activity)
	assert.True(t, logger.HasEntry("WARN", "Failed to read object"))
}

func TestMinioSource_ListError(t *testing.T) {
	store := &fakeBucket{listErr: errors.New("no such bucket")}

	_, err := newMinioSource(store, "", "", nil).Load(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list objects")
}

func TestNewMinioSource_RequiresBucket(t *testing.T) {
	_, err := NewMinioSource(context.Background(), MinioConfig{Endpoint: "localhost:9000"}, "", nil)

	require.Error(t, err)
}
