package raster

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpRasterizer_Defaults(t *testing.T) {
	r := NewChromedpRasterizer(nil)
	defer r.Close()

	assert.Equal(t, defaultChromeTimeout, r.config.DefaultTimeout)
	assert.Equal(t, 3.0, r.config.Scale)
	assert.NotNil(t, r.logger)
	assert.NotNil(t, r.allocCtx)

	custom := NewChromedpRasterizer(&ChromedpConfig{DefaultTimeout: time.Second, Scale: 2, RemoteURL: "ws://127.0.0.1:9222"})
	defer custom.Close()
	assert.Equal(t, time.Second, custom.config.DefaultTimeout)
	assert.Equal(t, 2.0, custom.config.Scale)
}

func TestChromedpRasterizer_Validation(t *testing.T) {
	r := NewChromedpRasterizer(nil)
	defer r.Close()

	tests := []struct {
		name string
		req  *Request
		code string
	}{
		{"nil request", nil, ErrCodeInvalidHTML},
		{"empty html", &Request{HTML: "  ", WidthMM: 210, HeightMM: 297}, ErrCodeInvalidHTML},
		{"zero width", &Request{HTML: "<p>x</p>", WidthMM: 0, HeightMM: 297}, ErrCodeInvalidSize},
		{"negative height", &Request{HTML: "<p>x</p>", WidthMM: 58, HeightMM: -1}, ErrCodeInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Rasterize(context.Background(), tt.req)
			var renderErr *RenderError
			require.True(t, errors.As(err, &renderErr))
			assert.Equal(t, tt.code, renderErr.Code)
		})
	}
}

func TestChromedpRasterizer_Closed(t *testing.T) {
	r := NewChromedpRasterizer(nil)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err := r.Rasterize(context.Background(), &Request{HTML: "<p>x</p>", WidthMM: 50, HeightMM: 25})
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeClosed, renderErr.Code)

	assert.NoError(t, r.Reset(context.Background()))
}

func TestChromedpRasterizer_ResetBeforeFirstPage(t *testing.T) {
	r := NewChromedpRasterizer(nil)
	defer r.Close()
	assert.NoError(t, r.Reset(context.Background()))
}

func TestWithBackground(t *testing.T) {
	doc := "<!DOCTYPE html><html><head><title>x</title></HEAD><body></body></html>"
	out := withBackground(doc, "#fff")
	assert.Contains(t, out, "<style>html,body{background:#fff}</style></HEAD>")

	assert.Equal(t, "<style>html,body{background:#000}</style><p>x</p>", withBackground("<p>x</p>", "#000"))
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 24, 12))))

	img, err := decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 24, img.WidthPx)
	assert.Equal(t, 12, img.HeightPx)

	_, err = decode(nil)
	assert.Error(t, err)
	_, err = decode([]byte("not a png"))
	assert.Error(t, err)
}

func TestRenderError(t *testing.T) {
	cause := errors.New("target closed")
	err := NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", cause)
	assert.Equal(t, "chromedp execution failed: target closed", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "empty", NewRenderError(ErrCodeInvalidHTML, "empty", nil).Error())
}

func TestMMToCSSPixels(t *testing.T) {
	assert.InDelta(t, 96.0, MMToCSSPixels(25.4), 1e-9)
	assert.InDelta(t, 793.7, MMToCSSPixels(210), 0.1)
}
