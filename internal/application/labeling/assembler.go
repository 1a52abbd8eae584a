package labeling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	domain "github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/domain/shared"
	"github.com/erp/labels/internal/infrastructure/barcode"
	"github.com/erp/labels/internal/infrastructure/logger"
	"github.com/erp/labels/internal/infrastructure/markup"
	"github.com/erp/labels/internal/infrastructure/pdf"
	"github.com/erp/labels/internal/infrastructure/raster"
	"github.com/erp/labels/internal/infrastructure/storage"
	"github.com/erp/labels/internal/infrastructure/telemetry"
)

const (
	pathPrint = "print"
	pathPDF   = "pdf"

	// DefaultOversample is the raster scale that keeps barcodes scannable in the PDF
	DefaultOversample = 3.0
	// DefaultSessionTTL is how long a print window can fetch its document
	DefaultSessionTTL = 10 * time.Minute

	invalidBarcodeText = "Código inválido"
	printSessionPath   = "/api/v1/labels/print/"
	surfaceResetWait   = 5 * time.Second
)

// AssemblerConfig holds the job settings of the assembler
type AssemblerConfig struct {
	Oversample    float64
	PageTimeout   time.Duration
	SessionTTL    time.Duration
	PublicBaseURL string
}

// Assembler tiles labels onto pages and delivers them as a print session or a
// PDF. It runs one job at a time; a request that arrives while a job is in
// flight is rejected, never queued.
type Assembler struct {
	mu          sync.Mutex
	state       domain.JobState
	lastOutcome domain.JobState
	lastJobID   string

	jobs       *CatalogService
	renderer   *LabelRenderer
	filler     *barcode.Filler
	rasterizer raster.Rasterizer
	sessions   domain.SessionStore
	archive    storage.ArtifactStore
	metrics    *telemetry.LabelMetrics
	logger     *zap.Logger
	cfg        AssemblerConfig
	now        func() time.Time
}

// AssemblerOption configures an Assembler
type AssemblerOption func(*Assembler)

// WithRasterizer enables the PDF path
func WithRasterizer(r raster.Rasterizer) AssemblerOption {
	return func(a *Assembler) {
		a.rasterizer = r
	}
}

// WithSessionStore enables the print path
func WithSessionStore(s domain.SessionStore) AssemblerOption {
	return func(a *Assembler) {
		a.sessions = s
	}
}

// WithArchive archives every generated PDF
func WithArchive(s storage.ArtifactStore) AssemblerOption {
	return func(a *Assembler) {
		a.archive = s
	}
}

// WithMetrics records job metrics
func WithMetrics(m *telemetry.LabelMetrics) AssemblerOption {
	return func(a *Assembler) {
		a.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) AssemblerOption {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithConfig sets the job settings. Zero values keep the defaults.
func WithConfig(cfg AssemblerConfig) AssemblerOption {
	return func(a *Assembler) {
		if cfg.Oversample > 0 {
			a.cfg.Oversample = cfg.Oversample
		}
		if cfg.PageTimeout > 0 {
			a.cfg.PageTimeout = cfg.PageTimeout
		}
		if cfg.SessionTTL > 0 {
			a.cfg.SessionTTL = cfg.SessionTTL
		}
		a.cfg.PublicBaseURL = strings.TrimSuffix(cfg.PublicBaseURL, "/")
	}
}

// NewAssembler creates an Assembler. Nil renderer or filler get the defaults.
func NewAssembler(jobs *CatalogService, renderer *LabelRenderer, filler *barcode.Filler, opts ...AssemblerOption) *Assembler {
	if jobs == nil {
		jobs = NewCatalogService(nil)
	}
	if renderer == nil {
		renderer = NewLabelRenderer(nil)
	}
	a := &Assembler{
		state:    domain.JobStateIdle,
		jobs:     jobs,
		renderer: renderer,
		logger:   zap.NewNop(),
		cfg: AssemblerConfig{
			Oversample:  DefaultOversample,
			PageTimeout: 30 * time.Second,
			SessionTTL:  DefaultSessionTTL,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if filler == nil {
		filler = barcode.NewFiller(nil, a.metrics, a.logger)
	}
	a.filler = filler
	return a
}

// State returns the current job state
func (a *Assembler) State() StateResponse {
	a.mu.Lock()
	defer a.mu.Unlock()
	return StateResponse{
		State:       a.state,
		Busy:        a.state.IsBusy(),
		LastOutcome: a.lastOutcome,
		LastJobID:   a.lastJobID,
	}
}

// Busy reports whether a job is in flight
func (a *Assembler) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.IsBusy()
}

func (a *Assembler) begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.state.CanTransitionTo(domain.JobStateLayout) {
		return shared.NewDomainError(shared.CodeJobInProgress, shared.ErrJobInProgress.Message)
	}
	a.state = domain.JobStateLayout
	a.metrics.SetBusy(true)
	return nil
}

func (a *Assembler) advance(to domain.JobState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.CanTransitionTo(to) {
		a.state = to
	}
}

// finish records the outcome and releases the gate for the next job. A job
// abandoned by its caller ends like a successful one.
func (a *Assembler) finish(jobID string, err error) domain.JobState {
	a.mu.Lock()
	defer a.mu.Unlock()

	outcome := domain.JobStateDone
	if err != nil && !errors.Is(err, context.Canceled) {
		outcome = domain.JobStateFailed
	}
	a.lastOutcome = outcome
	a.lastJobID = jobID
	a.state = domain.JobStateIdle
	a.metrics.SetBusy(false)
	return outcome
}

// run holds the gate for one job. The gate is released in a defer whatever
// happens inside fn.
func (a *Assembler) run(ctx context.Context, path string, req JobRequest,
	fn func(ctx context.Context, job *domain.LabelJob, log *zap.Logger) error) (err error) {

	ctx, span := telemetry.StartServiceSpan(ctx, "labels", path,
		attribute.String("labels.family", req.Family),
		attribute.String("labels.format", req.FormatID),
		attribute.Int("labels.quantity", req.Quantity))
	defer span.End()

	start := a.now()
	log := logger.WithTraceContext(ctx, a.logger).With(zap.String("path", path))

	if err := a.begin(); err != nil {
		log.Warn("label job rejected, another job is running")
		a.metrics.ObserveJob(path, telemetry.OutcomeRejected, 0)
		telemetry.RecordError(span, err)
		return err
	}

	jobID := ""
	defer func() {
		outcome := a.finish(jobID, err)
		elapsed := a.now().Sub(start)
		switch {
		case outcome == domain.JobStateFailed:
			a.metrics.ObserveJob(path, telemetry.OutcomeFailed, elapsed)
			telemetry.RecordError(span, err)
			log.Warn("label job failed", zap.String("job_id", jobID), zap.Error(err))
		case err != nil:
			a.metrics.ObserveJob(path, telemetry.OutcomeCancelled, elapsed)
			telemetry.AddEvent(span, "job.cancelled")
			log.Info("label job cancelled", zap.String("job_id", jobID))
		default:
			a.metrics.ObserveJob(path, telemetry.OutcomeDone, elapsed)
		}
	}()

	job, err := a.jobs.BuildJob(ctx, req)
	if err != nil {
		return err
	}
	jobID = job.ID.String()
	span.SetAttributes(attribute.String("labels.job_id", jobID))
	ctx, log = logger.WithJobID(ctx, log, jobID)

	return fn(ctx, job, log)
}

// assembly is a laid-out job with its barcodes drawn
type assembly struct {
	doc           markup.Document
	labels        int
	barcodeErrors int
}

type pendingBarcode struct {
	task barcode.Task
	node *html.Node
}

// assemble lays out every page and fills the barcode placeholders
func (a *Assembler) assemble(ctx context.Context, job *domain.LabelJob, log *zap.Logger) (*assembly, error) {
	ctx, span := telemetry.StartSpan(ctx, "labels.layout", attribute.Int("labels.pages", job.PageCount()))
	defer span.End()

	profile := job.Profile()
	calib := a.jobs.Catalog().Calibration().Lookup(job.Family, job.Format.ID)

	out := &assembly{doc: markup.Document{
		Title:        strings.TrimSuffix(job.Filename(), ".pdf"),
		PageWidthMM:  profile.PageWidthMM,
		PageHeightMM: profile.PageHeightMM,
		Landscape:    profile.Orientation == domain.OrientationLandscape,
	}}

	var pending []pendingBarcode
	for _, page := range job.Plan() {
		body := markup.Element("div", "class", "page-body")
		for _, cell := range page.Cells {
			pos := domain.Position(job.Format, profile, calib, cell.Row, cell.Col)
			node, task := a.renderer.Render(job.Product, job.Format, job.Family, job.Fields, cell, pos)
			markup.Append(body, node)
			if task != nil {
				pending = append(pending, pendingBarcode{task: *task, node: barcodeSlot(node, task.ID)})
			}
			out.labels++
		}
		out.doc.Pages = append(out.doc.Pages, markup.Page{Index: page.Index, Body: body})
	}

	errs, err := a.fillBarcodes(ctx, pending, log)
	if err != nil {
		return nil, err
	}
	out.barcodeErrors = errs
	telemetry.AddEvent(span, "barcodes.filled",
		attribute.Int("labels.barcodes", len(pending)),
		attribute.Int("labels.barcode_errors", errs))
	return out, nil
}

// fillBarcodes draws every pending barcode in order. Labels of one job share
// their barcode geometry, so each distinct task is drawn once. A label whose
// code cannot be drawn gets a visible placeholder and the job continues.
func (a *Assembler) fillBarcodes(ctx context.Context, pending []pendingBarcode, log *zap.Logger) (int, error) {
	drawn := make(map[barcode.Task]barcode.Outcome)
	failures := 0

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return failures, err
		}

		key := p.task
		key.ID = ""
		outcome, ok := drawn[key]
		if !ok {
			outcome = a.filler.Fill(ctx, p.task)
			if errors.Is(outcome.Err, context.Canceled) || errors.Is(outcome.Err, context.DeadlineExceeded) {
				return failures, outcome.Err
			}
			drawn[key] = outcome
		}

		if outcome.Artifact != nil {
			nodes, err := markup.ParseFragment(outcome.Artifact.SVG())
			if err == nil {
				markup.ReplaceChildren(p.node, nodes...)
				continue
			}
			log.Warn("barcode markup rejected", zap.String("task_id", p.task.ID), zap.Error(err))
		}
		failures++
		markup.SetAttr(p.node, "class", "barcode barcode-invalid")
		markup.SetAttr(p.node, "data-error", shared.CodeOf(outcome.Err))
		markup.ReplaceChildren(p.node, markup.Append(
			markup.Element("span", "class", "barcode-error"),
			markup.Text(invalidBarcodeText),
		))
	}
	return failures, nil
}

func barcodeSlot(label *html.Node, taskID string) *html.Node {
	if slot := markup.FindByID(label, taskID); slot != nil {
		return slot
	}
	return label
}

// PrintDocument assembles the print-ready document without opening a session
func (a *Assembler) PrintDocument(ctx context.Context, req JobRequest) (*PrintDocument, error) {
	var doc *PrintDocument
	err := a.run(ctx, pathPrint, req, func(ctx context.Context, job *domain.LabelJob, log *zap.Logger) error {
		var err error
		doc, err = a.printDocument(ctx, job, log)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (a *Assembler) printDocument(ctx context.Context, job *domain.LabelJob, log *zap.Logger) (*PrintDocument, error) {
	asm, err := a.assemble(ctx, job, log)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := markup.RenderPrint(&buf, asm.doc); err != nil {
		return nil, fmt.Errorf("failed to render print document: %w", err)
	}

	a.metrics.AddLabels(job.Family.String(), asm.labels)
	return &PrintDocument{
		JobID:         job.ID.String(),
		Title:         asm.doc.Title,
		HTML:          buf.Bytes(),
		Pages:         len(asm.doc.Pages),
		Labels:        asm.labels,
		BarcodeErrors: asm.barcodeErrors,
	}, nil
}

// Print assembles the document and opens a print session for it. The print
// window fetches the session through its URL.
func (a *Assembler) Print(ctx context.Context, req JobRequest) (*PrintResult, error) {
	var result *PrintResult
	err := a.run(ctx, pathPrint, req, func(ctx context.Context, job *domain.LabelJob, log *zap.Logger) error {
		if a.sessions == nil {
			return shared.NewDomainError(shared.CodeMissingDependency, "Print sessions are not configured")
		}

		doc, err := a.printDocument(ctx, job, log)
		if err != nil {
			return err
		}

		now := a.now()
		session := &domain.PrintSession{
			ID:        uuid.NewString(),
			JobID:     doc.JobID,
			Title:     doc.Title,
			HTML:      doc.HTML,
			Pages:     doc.Pages,
			Labels:    doc.Labels,
			CreatedAt: now,
		}
		if err := a.sessions.Open(ctx, session, a.cfg.SessionTTL); err != nil {
			log.Warn("print session could not be opened", zap.Error(err))
			return shared.NewDomainError(shared.CodeSessionUnavailable, shared.ErrSessionUnavailable.Message)
		}

		log.Info("print session opened",
			zap.String("session_id", session.ID),
			zap.Int("pages", doc.Pages),
			zap.Int("labels", doc.Labels),
			zap.Int("barcode_errors", doc.BarcodeErrors))

		result = &PrintResult{
			JobID:         doc.JobID,
			SessionID:     session.ID,
			URL:           a.cfg.PublicBaseURL + printSessionPath + session.ID,
			Pages:         doc.Pages,
			Labels:        doc.Labels,
			BarcodeErrors: doc.BarcodeErrors,
			ExpiresAt:     now.Add(a.cfg.SessionTTL),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PrintSession returns an open print session
func (a *Assembler) PrintSession(ctx context.Context, id string) (*domain.PrintSession, error) {
	if a.sessions == nil {
		return nil, shared.NewDomainError(shared.CodeMissingDependency, "Print sessions are not configured")
	}
	return a.sessions.Get(ctx, id)
}

// ClosePrintSession discards a print session. Abandoning a print window is
// a normal end, so closing an unknown session succeeds.
func (a *Assembler) ClosePrintSession(ctx context.Context, id string) {
	if a.sessions == nil {
		return
	}
	if err := a.sessions.Close(ctx, id); err != nil {
		a.logger.Warn("print session cleanup failed", zap.String("session_id", id), zap.Error(err))
	}
}

// GeneratePDF assembles the job and rasterizes its pages one after another
// into a PDF. A page that fails to rasterize is logged and skipped; the job
// fails only when no page could be rendered.
func (a *Assembler) GeneratePDF(ctx context.Context, req JobRequest) (*PDFResult, error) {
	var result *PDFResult
	err := a.run(ctx, pathPDF, req, func(ctx context.Context, job *domain.LabelJob, log *zap.Logger) error {
		if a.rasterizer == nil {
			return shared.NewDomainError(shared.CodeMissingDependency, "Page rasterizer is not configured")
		}

		asm, err := a.assemble(ctx, job, log)
		if err != nil {
			return err
		}

		a.advance(domain.JobStateRasterize)
		defer a.releaseSurface(ctx, log)

		doc, skipped, err := a.rasterize(ctx, job, asm, log)
		if err != nil {
			return err
		}
		data, err := doc.Bytes()
		if err != nil {
			return fmt.Errorf("failed to write pdf: %w", err)
		}

		a.metrics.AddLabels(job.Family.String(), asm.labels)
		result = &PDFResult{
			JobID:        job.ID.String(),
			Filename:     job.Filename(),
			Data:         data,
			Pages:        doc.Pages(),
			SkippedPages: skipped,
		}
		result.ArchiveURL = a.archiveDocument(ctx, job, result, log)

		log.Info("pdf generated",
			zap.String("filename", result.Filename),
			zap.Int("pages", result.Pages),
			zap.Ints("skipped_pages", skipped),
			zap.Int("barcode_errors", asm.barcodeErrors))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// rasterize renders pages in increasing index order through the shared surface
func (a *Assembler) rasterize(ctx context.Context, job *domain.LabelJob, asm *assembly, log *zap.Logger) (*pdf.Document, []int, error) {
	ctx, span := telemetry.StartSpan(ctx, "labels.rasterize", attribute.Int("labels.pages", len(asm.doc.Pages)))
	defer span.End()

	doc, err := pdf.NewDocument(pdf.Options{
		WidthMM:   asm.doc.PageWidthMM,
		HeightMM:  asm.doc.PageHeightMM,
		Landscape: asm.doc.Landscape,
		Title:     asm.doc.Title,
		Creator:   "labels",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pdf: %w", err)
	}

	skipped := []int{}
	for _, page := range asm.doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		err := a.rasterizePage(ctx, asm.doc, page, doc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			log.Warn("page rasterization failed, skipping page",
				zap.Int("page", page.Index),
				zap.Error(err))
			telemetry.AddEvent(span, "page.skipped", attribute.Int("labels.page", page.Index))
			a.metrics.PageRasterized(false)
			skipped = append(skipped, page.Index)
			continue
		}
		a.metrics.PageRasterized(true)
	}

	if doc.Pages() == 0 {
		return nil, nil, shared.NewDomainError(shared.CodeRasterizationFailed,
			fmt.Sprintf("None of the %d pages could be rasterized", len(asm.doc.Pages)))
	}
	return doc, skipped, nil
}

func (a *Assembler) rasterizePage(ctx context.Context, layout markup.Document, page markup.Page, doc *pdf.Document) error {
	capture, err := markup.CaptureString(layout, page)
	if err != nil {
		return err
	}
	img, err := a.rasterizer.Rasterize(ctx, &raster.Request{
		HTML:       capture,
		WidthMM:    layout.PageWidthMM,
		HeightMM:   layout.PageHeightMM,
		Scale:      a.cfg.Oversample,
		Background: "#ffffff",
		Timeout:    a.cfg.PageTimeout,
	})
	if err != nil {
		return err
	}
	return doc.AddPageImage(img.PNG)
}

// releaseSurface clears the shared raster surface for the next job, even when
// the job's own context is already cancelled
func (a *Assembler) releaseSurface(ctx context.Context, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), surfaceResetWait)
	defer cancel()
	if err := a.rasterizer.Reset(ctx); err != nil {
		log.Warn("raster surface reset failed", zap.Error(err))
	}
}

// archiveDocument stores the PDF when an archive is configured. Archiving
// failures are logged and never fail the job.
func (a *Assembler) archiveDocument(ctx context.Context, job *domain.LabelJob, result *PDFResult, log *zap.Logger) string {
	if a.archive == nil {
		return ""
	}
	stored, err := a.archive.Store(ctx, &storage.StoreRequest{
		JobID:       job.ID,
		Filename:    result.Filename,
		ContentType: "application/pdf",
		Data:        result.Data,
	})
	if err != nil {
		log.Warn("pdf archiving failed", zap.Error(err))
		return ""
	}
	log.Debug("pdf archived", zap.String("key", stored.Key))
	return stored.URL
}
