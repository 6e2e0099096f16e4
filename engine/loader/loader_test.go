package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func waitIdle(t *testing.T, l Loader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}

func TestContinuationRunsOnlyOnPoll(t *testing.T) {
	l := NewLoader(WithWorkers(2))

	called := 0
	f := Submit(l, "answer", func(ProgressFunc) (int, error) {
		return 42, nil
	}).Then(func(v int, err error) {
		called++
		assert.Equal(t, 42, v)
		assert.NoError(t, err)
	})

	waitIdle(t, l)
	assert.Equal(t, 0, called)
	assert.False(t, f.Ready())
	_, err := f.Result()
	assert.ErrorIs(t, err, ErrFutureNotReady)
	assert.Equal(t, 1, l.Pending())

	assert.Positive(t, l.Poll())
	assert.Equal(t, 1, called)
	assert.True(t, f.Ready())
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 0, l.Pending())
}

func TestThenOnResolvedFutureWaitsForNextPoll(t *testing.T) {
	l := NewLoader()
	f := Submit(l, "s", func(ProgressFunc) (string, error) { return "done", nil })
	waitIdle(t, l)
	l.Poll()
	require.True(t, f.Ready())

	var got string
	f.Then(func(v string, _ error) { got = v })
	assert.Empty(t, got)
	assert.Equal(t, 1, l.Poll())
	assert.Equal(t, "done", got)
}

func TestProgressDeliveredOnPoll(t *testing.T) {
	l := NewLoader()
	var seen []Progress
	f := Submit(l, "p", func(report ProgressFunc) (int, error) {
		report(1, 2)
		report(2, 2)
		return 0, nil
	}).OnProgress(func(p Progress) { seen = append(seen, p) })

	waitIdle(t, l)
	assert.Empty(t, seen)
	l.Poll()
	assert.Equal(t, []Progress{{1, 2}, {2, 2}}, seen)
	assert.Equal(t, Progress{2, 2}, f.Progress())
}

func TestPanickingTaskResolvesWithError(t *testing.T) {
	l := NewLoader()
	f := Submit(l, "boom", func(ProgressFunc) (int, error) {
		panic("bad data")
	})
	waitIdle(t, l)
	l.Poll()

	_, err := f.Result()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad data")
}

func TestMapPassesErrorsThrough(t *testing.T) {
	l := NewLoader()
	sentinel := errors.New("read failed")
	mapped := false
	f := Map(Submit(l, "m", func(ProgressFunc) (int, error) { return 0, sentinel }), func(v int) (string, error) {
		mapped = true
		return "x", nil
	})
	waitIdle(t, l)
	l.Poll()

	_, err := f.Result()
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, mapped)
}

func TestLoadTextureUploadsOnPoll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 4, 2), 0o644))

	repo := renderer.NewHeadlessResourceRepository()
	l := NewLoader(WithResourceRepository(repo))

	tex, f := l.LoadTexture(path)
	assert.False(t, tex.IsReady())
	assert.Same(t, repo.DummyTextures().White, tex.Or(repo.DummyTextures().White))

	var progress []Progress
	f.OnProgress(func(p Progress) { progress = append(progress, p) })

	waitIdle(t, l)
	assert.False(t, tex.IsReady())
	assert.Empty(t, repo.Commands())

	l.Poll()
	got, err := f.Result()
	require.NoError(t, err)
	assert.Same(t, tex, got)
	assert.True(t, tex.IsReady())
	assert.Equal(t, uint32(4), tex.Width())
	assert.Equal(t, uint32(2), tex.Height())
	assert.Nil(t, tex.Staging())
	assert.Equal(t, renderer.ResourceTexture, repo.ResourceKind(tex.Handle()))
	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, last.Total, last.Loaded)
}

func TestLoadTextureIsCachedByPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 1, 1), 0o644))

	l := NewLoader()
	t1, f1 := l.LoadTexture(path)
	t2, f2 := l.LoadTexture(path)
	assert.Same(t, t1, t2)
	assert.Same(t, f1, f2)
}

func TestLoadTextureWithoutRepositoryKeepsStaging(t *testing.T) {
	l := NewLoader()
	tex, f := l.LoadTextureData("inline", encodePNG(t, 2, 2))
	waitIdle(t, l)
	l.Poll()

	_, err := f.Result()
	require.NoError(t, err)
	assert.False(t, tex.IsReady())
	require.NotNil(t, tex.Staging())
	assert.Len(t, tex.Staging().Pixels, 2*2*4)
}

func TestLoadTextureMissingFile(t *testing.T) {
	repo := renderer.NewHeadlessResourceRepository()
	l := NewLoader(WithResourceRepository(repo))
	tex, f := l.LoadTexture(filepath.Join(t.TempDir(), "missing.png"))
	waitIdle(t, l)
	l.Poll()

	_, err := f.Result()
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, tex.IsReady())
	assert.Empty(t, repo.Commands())
}

func TestLoadTextureRejectsGarbage(t *testing.T) {
	l := NewLoader()
	_, f := l.LoadTextureData("junk", []byte("not an image"))
	waitIdle(t, l)
	l.Poll()

	_, err := f.Result()
	assert.Error(t, err)
}

func TestWaitHonorsContext(t *testing.T) {
	l := NewLoader()
	release := make(chan struct{})
	defer close(release)
	Submit(l, "blocked", func(ProgressFunc) (int, error) {
		<-release
		return 0, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}
