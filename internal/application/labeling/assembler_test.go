package labeling_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/labels/internal/application/labeling"
	"github.com/erp/labels/internal/domain/catalog"
	domain "github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/domain/shared"
	"github.com/erp/labels/internal/infrastructure/barcode"
	"github.com/erp/labels/internal/infrastructure/raster"
	"github.com/erp/labels/internal/infrastructure/storage"
	"github.com/erp/labels/internal/infrastructure/telemetry"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type MockRasterizer struct {
	mock.Mock
}

func (m *MockRasterizer) Rasterize(ctx context.Context, req *raster.Request) (*raster.Image, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*raster.Image), args.Error(1)
}

func (m *MockRasterizer) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRasterizer) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Open(ctx context.Context, session *domain.PrintSession, ttl time.Duration) error {
	args := m.Called(ctx, session, ttl)
	return args.Error(0)
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*domain.PrintSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrintSession), args.Error(1)
}

func (m *MockSessionStore) Close(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Store(ctx context.Context, req *storage.StoreRequest) (*storage.StoreResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.StoreResult), args.Error(1)
}

func (m *MockArtifactStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockArtifactStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

// countingDrawer fails every draw and counts the calls
type countingDrawer struct {
	calls atomic.Int32
}

func (d *countingDrawer) Draw(payload string, opts barcode.Options) (*barcode.Artifact, error) {
	d.calls.Add(1)
	return nil, errors.New("unsupported payload")
}

// =============================================================================
// Helpers
// =============================================================================

func coffee() *catalog.Product {
	return &catalog.Product{
		ID:            "p-1",
		Name:          "Café molido 250g",
		Code:          "8412345678905",
		Price:         decimal.RequireFromString("4.95"),
		StockQuantity: 12,
	}
}

func pagePNG(t *testing.T) *raster.Image {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	return &raster.Image{PNG: buf.Bytes(), WidthPx: 8, HeightPx: 8}
}

func scrapeMetrics(t *testing.T, m *telemetry.LabelMetrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func sheetRequest(quantity int) labeling.JobRequest {
	return labeling.JobRequest{
		Product:  coffee(),
		Family:   "SHEET",
		FormatID: "3x10",
		Quantity: quantity,
	}
}

func newTestAssembler(opts ...labeling.AssemblerOption) *labeling.Assembler {
	opts = append([]labeling.AssemblerOption{labeling.WithLogger(zap.NewNop())}, opts...)
	return labeling.NewAssembler(labeling.NewCatalogService(nil), nil, nil, opts...)
}

// =============================================================================
// Print path
// =============================================================================

func TestAssembler_PrintDocument(t *testing.T) {
	a := newTestAssembler()

	doc, err := a.PrintDocument(context.Background(), sheetRequest(65))
	require.NoError(t, err)

	assert.Equal(t, 3, doc.Pages)
	assert.Equal(t, 65, doc.Labels)
	assert.Zero(t, doc.BarcodeErrors)
	assert.NotEmpty(t, doc.JobID)
	assert.Equal(t, "Etiquetas_Café_molido_250g", doc.Title)

	html := string(doc.HTML)
	assert.Equal(t, 65, strings.Count(html, `class="label"`))
	assert.Equal(t, 65, strings.Count(html, "<svg"))
	assert.Contains(t, html, "4,95")
	assert.Contains(t, html, "window.print()")

	state := a.State()
	assert.Equal(t, domain.JobStateIdle, state.State)
	assert.False(t, state.Busy)
	assert.Equal(t, domain.JobStateDone, state.LastOutcome)
	assert.Equal(t, doc.JobID, state.LastJobID)
}

func TestAssembler_PrintDocument_BarcodePlaceholder(t *testing.T) {
	drawer := &countingDrawer{}
	filler := barcode.NewFiller(drawer, nil, zap.NewNop())
	a := labeling.NewAssembler(labeling.NewCatalogService(nil), nil, filler)

	doc, err := a.PrintDocument(context.Background(), sheetRequest(4))
	require.NoError(t, err)

	assert.Equal(t, 4, doc.Labels)
	assert.Equal(t, 4, doc.BarcodeErrors)
	assert.Equal(t, 4, strings.Count(string(doc.HTML), "Código inválido"))
	assert.Equal(t, int32(2), drawer.calls.Load(), "one draw and one CODE128 retry shared by every label")
	assert.Equal(t, domain.JobStateDone, a.State().LastOutcome)
}

func TestAssembler_PrintDocument_Failures(t *testing.T) {
	t.Run("empty code with barcode fails the job", func(t *testing.T) {
		a := newTestAssembler()
		req := sheetRequest(1)
		req.Product.Code = ""

		_, err := a.PrintDocument(context.Background(), req)
		assert.Equal(t, shared.CodeInvalidBarcodePayload, shared.CodeOf(err))

		state := a.State()
		assert.Equal(t, domain.JobStateIdle, state.State)
		assert.Equal(t, domain.JobStateFailed, state.LastOutcome)
	})

	t.Run("quantity over the limit", func(t *testing.T) {
		a := labeling.NewAssembler(labeling.NewCatalogService(nil, labeling.WithMaxQuantity(10)), nil, nil)
		_, err := a.PrintDocument(context.Background(), sheetRequest(11))
		assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))
		assert.False(t, a.Busy())
	})

	t.Run("cancelled context ends the job without failing it", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		metrics := telemetry.NewLabelMetrics()
		a := labeling.NewAssembler(labeling.NewCatalogService(nil), nil, nil,
			labeling.WithLogger(zap.New(core)), labeling.WithMetrics(metrics))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := a.PrintDocument(ctx, sheetRequest(2))
		assert.ErrorIs(t, err, context.Canceled)

		state := a.State()
		assert.Equal(t, domain.JobStateIdle, state.State)
		assert.Equal(t, domain.JobStateDone, state.LastOutcome)
		assert.Zero(t, logs.FilterMessage("label job failed").Len())
		assert.Equal(t, 1, logs.FilterMessage("label job cancelled").Len())

		scrape := scrapeMetrics(t, metrics)
		assert.Contains(t, scrape, `labels_jobs_total{outcome="cancelled",path="print"} 1`)
		assert.NotContains(t, scrape, `outcome="failed"`)
	})
}

func TestAssembler_Print(t *testing.T) {
	t.Run("opens a session", func(t *testing.T) {
		sessions := new(MockSessionStore)
		var opened *domain.PrintSession
		sessions.On("Open", mock.Anything, mock.AnythingOfType("*labeling.PrintSession"), 2*time.Minute).
			Run(func(args mock.Arguments) { opened = args.Get(1).(*domain.PrintSession) }).
			Return(nil)

		a := newTestAssembler(
			labeling.WithSessionStore(sessions),
			labeling.WithConfig(labeling.AssemblerConfig{SessionTTL: 2 * time.Minute, PublicBaseURL: "http://shop.local/"}),
		)

		result, err := a.Print(context.Background(), sheetRequest(30))
		require.NoError(t, err)
		require.NotNil(t, opened)

		assert.Equal(t, opened.ID, result.SessionID)
		assert.Equal(t, "http://shop.local/api/v1/labels/print/"+opened.ID, result.URL)
		assert.Equal(t, 1, result.Pages)
		assert.Equal(t, 30, result.Labels)
		assert.Equal(t, result.JobID, opened.JobID)
		assert.Contains(t, string(opened.HTML), "<svg")
		sessions.AssertExpectations(t)
	})

	t.Run("session store failure", func(t *testing.T) {
		sessions := new(MockSessionStore)
		sessions.On("Open", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

		a := newTestAssembler(labeling.WithSessionStore(sessions))
		_, err := a.Print(context.Background(), sheetRequest(1))
		assert.Equal(t, shared.CodeSessionUnavailable, shared.CodeOf(err))
		assert.Equal(t, domain.JobStateFailed, a.State().LastOutcome)
	})

	t.Run("no session store", func(t *testing.T) {
		a := newTestAssembler()
		_, err := a.Print(context.Background(), sheetRequest(1))
		assert.Equal(t, shared.CodeMissingDependency, shared.CodeOf(err))
	})
}

func TestAssembler_PrintSessions(t *testing.T) {
	sessions := new(MockSessionStore)
	session := &domain.PrintSession{ID: "s-1", HTML: []byte("<html></html>")}
	sessions.On("Get", mock.Anything, "s-1").Return(session, nil)
	sessions.On("Get", mock.Anything, "gone").Return(nil, shared.ErrNotFound)
	sessions.On("Close", mock.Anything, "s-1").Return(nil)
	sessions.On("Close", mock.Anything, "broken").Return(errors.New("redis down"))

	a := newTestAssembler(labeling.WithSessionStore(sessions))

	got, err := a.PrintSession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, session, got)

	_, err = a.PrintSession(context.Background(), "gone")
	assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))

	a.ClosePrintSession(context.Background(), "s-1")
	a.ClosePrintSession(context.Background(), "broken")
	sessions.AssertExpectations(t)

	bare := newTestAssembler()
	_, err = bare.PrintSession(context.Background(), "s-1")
	assert.Equal(t, shared.CodeMissingDependency, shared.CodeOf(err))
	assert.NotPanics(t, func() { bare.ClosePrintSession(context.Background(), "s-1") })
}

// =============================================================================
// PDF path
// =============================================================================

func TestAssembler_GeneratePDF(t *testing.T) {
	t.Run("rasterizes every page in order", func(t *testing.T) {
		r := new(MockRasterizer)
		var scales []float64
		r.On("Rasterize", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				req := args.Get(1).(*raster.Request)
				scales = append(scales, req.Scale)
				assert.Equal(t, 210.0, req.WidthMM)
				assert.Equal(t, 297.0, req.HeightMM)
				assert.Equal(t, "#ffffff", req.Background)
				assert.Equal(t, 1, strings.Count(req.HTML, `class="page"`))
			}).
			Return(pagePNG(t), nil)
		r.On("Reset", mock.Anything).Return(nil).Once()

		a := newTestAssembler(labeling.WithRasterizer(r), labeling.WithMetrics(telemetry.NewLabelMetrics()))
		result, err := a.GeneratePDF(context.Background(), sheetRequest(65))
		require.NoError(t, err)

		assert.Equal(t, 3, result.Pages)
		assert.Empty(t, result.SkippedPages)
		assert.Equal(t, "Etiquetas_Café_molido_250g.pdf", result.Filename)
		assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF-")))
		assert.Equal(t, []float64{3, 3, 3}, scales)
		assert.Empty(t, result.ArchiveURL)
		r.AssertExpectations(t)
	})

	t.Run("failed page is skipped", func(t *testing.T) {
		r := new(MockRasterizer)
		r.On("Rasterize", mock.Anything, mock.Anything).Return(pagePNG(t), nil).Once()
		r.On("Rasterize", mock.Anything, mock.Anything).Return(nil, errors.New("capture timed out")).Once()
		r.On("Rasterize", mock.Anything, mock.Anything).Return(pagePNG(t), nil).Once()
		r.On("Reset", mock.Anything).Return(nil)

		a := newTestAssembler(labeling.WithRasterizer(r))
		result, err := a.GeneratePDF(context.Background(), sheetRequest(65))
		require.NoError(t, err)
		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, []int{1}, result.SkippedPages)
		assert.Equal(t, domain.JobStateDone, a.State().LastOutcome)
	})

	t.Run("undecodable page image is skipped", func(t *testing.T) {
		r := new(MockRasterizer)
		r.On("Rasterize", mock.Anything, mock.Anything).Return(pagePNG(t), nil).Once()
		r.On("Rasterize", mock.Anything, mock.Anything).
			Return(&raster.Image{PNG: []byte("\x89PNG\r\n\x1a\ngarbage"), WidthPx: 8, HeightPx: 8}, nil).Once()
		r.On("Rasterize", mock.Anything, mock.Anything).Return(pagePNG(t), nil).Once()
		r.On("Reset", mock.Anything).Return(nil)

		a := newTestAssembler(labeling.WithRasterizer(r))
		result, err := a.GeneratePDF(context.Background(), sheetRequest(65))
		require.NoError(t, err)
		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, []int{1}, result.SkippedPages)
		assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF-")))
		assert.Equal(t, domain.JobStateDone, a.State().LastOutcome)
	})

	t.Run("no page rendered fails the job", func(t *testing.T) {
		r := new(MockRasterizer)
		r.On("Rasterize", mock.Anything, mock.Anything).Return(nil, errors.New("browser gone"))
		r.On("Reset", mock.Anything).Return(errors.New("browser gone"))

		a := newTestAssembler(labeling.WithRasterizer(r))
		_, err := a.GeneratePDF(context.Background(), sheetRequest(2))
		assert.Equal(t, shared.CodeRasterizationFailed, shared.CodeOf(err))

		state := a.State()
		assert.Equal(t, domain.JobStateIdle, state.State)
		assert.Equal(t, domain.JobStateFailed, state.LastOutcome)
		r.AssertCalled(t, "Reset", mock.Anything)
	})

	t.Run("thermal job gets one page per label", func(t *testing.T) {
		r := new(MockRasterizer)
		r.On("Rasterize", mock.Anything, mock.MatchedBy(func(req *raster.Request) bool {
			return req.WidthMM == 80 && req.HeightMM == 50
		})).Return(pagePNG(t), nil)
		r.On("Reset", mock.Anything).Return(nil)

		a := newTestAssembler(labeling.WithRasterizer(r))
		result, err := a.GeneratePDF(context.Background(), labeling.JobRequest{
			Product: coffee(), Family: "THERMAL", FormatID: "80x50", Quantity: 4,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, result.Pages)
		r.AssertNumberOfCalls(t, "Rasterize", 4)
	})

	t.Run("archives the document", func(t *testing.T) {
		r := new(MockRasterizer)
		r.On("Rasterize", mock.Anything, mock.Anything).Return(pagePNG(t), nil)
		r.On("Reset", mock.Anything).Return(nil)

		archive := new(MockArtifactStore)
		archive.On("Store", mock.Anything, mock.MatchedBy(func(req *storage.StoreRequest) bool {
			return req.ContentType == "application/pdf" && req.Filename == "Etiquetas_Café_molido_250g.pdf"
		})).Return(&storage.StoreResult{Key: "k", URL: "https://files/k"}, nil)

		a := newTestAssembler(labeling.WithRasterizer(r), labeling.WithArchive(archive))
		result, err := a.GeneratePDF(context.Background(), sheetRequest(1))
		require.NoError(t, err)
		assert.Equal(t, "https://files/k", result.ArchiveURL)
		archive.AssertExpectations(t)
	})

	t.Run("archive failure does not fail the job", func(t *testing.T) {
		r := new(MockRasterizer)
		r.On("Rasterize", mock.Anything, mock.Anything).Return(pagePNG(t), nil)
		r.On("Reset", mock.Anything).Return(nil)

		archive := new(MockArtifactStore)
		archive.On("Store", mock.Anything, mock.Anything).Return(nil, errors.New("bucket gone"))

		a := newTestAssembler(labeling.WithRasterizer(r), labeling.WithArchive(archive))
		result, err := a.GeneratePDF(context.Background(), sheetRequest(1))
		require.NoError(t, err)
		assert.Empty(t, result.ArchiveURL)
	})

	t.Run("no rasterizer", func(t *testing.T) {
		a := newTestAssembler()
		_, err := a.GeneratePDF(context.Background(), sheetRequest(1))
		assert.Equal(t, shared.CodeMissingDependency, shared.CodeOf(err))
	})
}

func TestAssembler_RejectsConcurrentJobs(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	r := new(MockRasterizer)
	r.On("Rasterize", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(pagePNG(t), nil).Once()
	r.On("Reset", mock.Anything).Return(nil)

	sessions := new(MockSessionStore)
	a := newTestAssembler(labeling.WithRasterizer(r), labeling.WithSessionStore(sessions))

	done := make(chan error, 1)
	go func() {
		_, err := a.GeneratePDF(context.Background(), sheetRequest(1))
		done <- err
	}()

	<-entered
	state := a.State()
	assert.True(t, state.Busy)
	assert.Equal(t, domain.JobStateRasterize, state.State)

	_, err := a.Print(context.Background(), sheetRequest(1))
	assert.Equal(t, shared.CodeJobInProgress, shared.CodeOf(err))
	_, err = a.GeneratePDF(context.Background(), sheetRequest(1))
	assert.Equal(t, shared.CodeJobInProgress, shared.CodeOf(err))

	close(release)
	require.NoError(t, <-done)

	state = a.State()
	assert.False(t, state.Busy)
	assert.Equal(t, domain.JobStateDone, state.LastOutcome)
	sessions.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssembler_CancelledDuringRasterization(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := new(MockRasterizer)
	r.On("Rasterize", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled).Once()
	r.On("Reset", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })).Return(nil).Once()

	core, logs := observer.New(zap.InfoLevel)
	a := newTestAssembler(labeling.WithRasterizer(r), labeling.WithLogger(zap.New(core)))
	_, err := a.GeneratePDF(ctx, sheetRequest(65))
	assert.ErrorIs(t, err, context.Canceled)
	r.AssertNumberOfCalls(t, "Rasterize", 1)
	r.AssertExpectations(t)

	state := a.State()
	assert.False(t, state.Busy)
	assert.Equal(t, domain.JobStateDone, state.LastOutcome)
	assert.Zero(t, logs.FilterMessage("label job failed").Len())
	assert.Zero(t, logs.FilterMessage("page rasterization failed, skipping page").Len())
}
