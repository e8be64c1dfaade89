// Package engine runs the complete validation pipeline for one CFDI:
// parsing, rule resolution, reconciliation, complement checks,
// classification and enrichment. Every input yields exactly one Result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"fjacquet/cfdi-sentinel/internal/cfdiparser"
	"fjacquet/cfdi-sentinel/internal/classifier"
	"fjacquet/cfdi-sentinel/internal/complement"
	"fjacquet/cfdi-sentinel/internal/dateutils"
	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/doctype"
	"fjacquet/cfdi-sentinel/internal/enrichment"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/materiality"
	"fjacquet/cfdi-sentinel/internal/metrics"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/parsererror"
	"fjacquet/cfdi-sentinel/internal/reconciler"
	"fjacquet/cfdi-sentinel/internal/rules"
	"fjacquet/cfdi-sentinel/internal/satstatus"

	"github.com/shopspring/decimal"
)

// IssuerActive is the issuer state reported for every classified document.
const IssuerActive = "Vigente"

// Input is one document to validate.
type Input struct {
	FileName string
	Data     []byte
	// Activity is the caller's declared business activity (giro), optional.
	Activity string
}

// Options configures an Engine. Nil collaborators disable their stage.
type Options struct {
	Logger                logging.Logger
	Materiality           *materiality.Assessor
	Enricher              *enrichment.Enricher
	Metrics               *metrics.Metrics
	RejectUnknownVersions bool
}

// Engine validates CFDI documents. It is safe for concurrent use.
type Engine struct {
	parser        *cfdiparser.Parser
	materiality   *materiality.Assessor
	enricher      *enrichment.Enricher
	metrics       *metrics.Metrics
	logger        logging.Logger
	rejectUnknown bool
}

// New creates an Engine.
func New(opts Options) *Engine {
	logger := logging.OrDefault(opts.Logger)
	return &Engine{
		parser:        cfdiparser.NewParser(logger),
		materiality:   opts.Materiality,
		enricher:      opts.Enricher,
		metrics:       opts.Metrics,
		logger:        logger,
		rejectUnknown: opts.RejectUnknownVersions,
	}
}

// Validate runs the pipeline for in. Failures never escape as errors: they
// become a NotUsable Result carrying the matching diagnostic.
func (e *Engine) Validate(ctx context.Context, in Input) (res models.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(
				logging.Field{Key: logging.FieldFile, Value: in.FileName},
				logging.Field{Key: "stack", Value: string(debug.Stack())},
			).Error(fmt.Sprintf("Recovered panic while validating: %v", r))
			res = errorResult(in.FileName, fmt.Errorf("panic: %v", r))
		}
		e.metrics.ObserveDocument(string(res.Outcome), time.Since(start))
	}()

	res, err := e.validate(ctx, in)
	if err != nil {
		e.logger.WithError(err).WithFields(logging.Field{Key: logging.FieldFile, Value: in.FileName}).Warn("Document rejected")
		return errorResult(in.FileName, err)
	}

	e.logger.Debug("Document validated",
		logging.Field{Key: logging.FieldFile, Value: in.FileName},
		logging.Field{Key: logging.FieldUUID, Value: res.UUID},
		logging.Field{Key: logging.FieldVerdict, Value: res.Label},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start).String()})
	return res
}

func (e *Engine) validate(ctx context.Context, in Input) (models.Result, error) {
	if err := checkDeadline(ctx, in.FileName); err != nil {
		return models.Result{}, err
	}

	doc, err := e.parser.Parse(in.Data)
	if err != nil {
		var encErr *parsererror.EncodingError
		if errors.As(err, &encErr) {
			encErr.FilePath = in.FileName
		}
		return models.Result{}, err
	}

	rs := rules.Resolve(doc.Version, doc.FiscalYear, doc.Type)
	if !rs.Known && e.rejectUnknown {
		return models.Result{}, &parsererror.UnsupportedVersionError{Version: doc.Version}
	}

	cin := classifier.Input{
		Document: doc,
		Rules:    rs,
		Taxes:    reconciler.Reconcile(doc),
		Payroll:  complement.ValidatePayroll(doc),
		Payments: complement.ValidatePayments(doc, rs),
		Freight:  complement.ValidateFreight(doc, rs),
		DocType:  doctype.Classify(doc),
	}
	if e.materiality != nil {
		cin.Materiality = e.materiality.Assess(ctx, doc, in.Activity)
	}

	verdict := classifier.Classify(cin)
	outcome := e.enricher.Apply(ctx, doc, &verdict)

	if err := checkDeadline(ctx, in.FileName); err != nil {
		return models.Result{}, err
	}
	return buildResult(in.FileName, cin, verdict, outcome), nil
}

func checkDeadline(ctx context.Context, fileName string) error {
	if err := ctx.Err(); err != nil {
		return &parsererror.TimeoutError{FilePath: fileName, Err: err}
	}
	return nil
}

// TimeoutResult builds the row for a document that exceeded limit.
func TimeoutResult(fileName string, limit time.Duration) models.Result {
	return errorResult(fileName, &parsererror.TimeoutError{FilePath: fileName, Limit: limit, Err: context.DeadlineExceeded})
}

func errorResult(fileName string, err error) models.Result {
	d := diagnosticFor(err)
	res := models.NewErrorResult(fileName, string(d.Code), diagnostic.Render([]diagnostic.Diagnostic{d}))
	if note := diagnostic.RenderTechnical([]diagnostic.Diagnostic{d}); note != diagnostic.NoObservations {
		res.TechnicalNotes = note
	}
	res.Error = err.Error()
	return res
}

func diagnosticFor(err error) diagnostic.Diagnostic {
	var (
		encErr     *parsererror.EncodingError
		parseErr   *parsererror.ParseError
		versionErr *parsererror.UnsupportedVersionError
		validErr   *parsererror.ValidationError
		timeoutErr *parsererror.TimeoutError
	)
	switch {
	case errors.As(err, &encErr):
		return diagnostic.New(diagnostic.CodeEncodingUnsupported, diagnostic.ParamEncoding, encErr.Detected)
	case errors.As(err, &versionErr):
		return diagnostic.New(diagnostic.CodeUnsupportedVersion, diagnostic.ParamVersion, versionErr.Version)
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return diagnostic.New(diagnostic.CodeTimeout)
	case errors.As(err, &parseErr):
		return diagnostic.New(diagnostic.CodeMalformed, diagnostic.ParamDetail, parseErr.Error())
	case errors.As(err, &validErr):
		return diagnostic.New(diagnostic.CodeMalformed, diagnostic.ParamDetail, validErr.Error())
	}
	return diagnostic.New(diagnostic.CodeInternal, diagnostic.ParamDetail, err.Error())
}

func buildResult(fileName string, in classifier.Input, v classifier.Verdict, out enrichment.Outcome) models.Result {
	doc := in.Document
	date, clock := dateutils.SplitTimestamp(doc.IssuedAtRaw)

	res := models.Result{
		FileName:           fileName,
		UUID:               orPlaceholder(doc.UUID(), models.NotAvailable),
		Version:            doc.Version,
		Type:               string(doc.Type),
		Series:             orPlaceholder(doc.Series, models.NoSeries),
		Folio:              orPlaceholder(doc.Folio, models.NoFolio),
		IssueDate:          date,
		IssueTime:          clock,
		FiscalYear:         doc.FiscalYear,
		SATStatus:          string(out.SATState),
		CancellationDetail: orPlaceholder(out.CancellationDetail, models.NotApplicable),
		Substituted:        models.No,
		SubstitutionUUID:   models.NotApplicable,
		Issuer:             withPlaceholders(doc.Issuer),
		IssuerSATState:     IssuerActive,
		Receiver:           withPlaceholders(doc.Receiver),
		DenylistIssuer:     out.IssuerListing,
		RelationType:       models.NotApplicable,
		SemanticType:       in.DocType.Semantic,
		IsPayroll:          in.Payroll.Applicable,
		PayrollVersion:     models.NotApplicable,
		FreightRequired:    string(in.Freight.Required),
		FreightPresent:     string(in.Freight.Present),
		FreightComplete:    string(in.Freight.Complete),
		FreightVersion:     orPlaceholder(in.Freight.Version, models.NotApplicable),
		FreightMissing:     in.Freight.Missing,
		PaymentsPresent:    string(in.Payments.Present),
		PaymentsVersion:    orPlaceholder(in.Payments.Version, models.NotApplicable),
		PaymentsValid:      string(in.Payments.Valid),
		Encoding:           doc.Encoding,
		Complements:        doc.DetectedComplements(),
		Currency:           orPlaceholder(doc.Currency, models.DefaultMXN),
		ExchangeRate:       doc.ExchangeRate,
		PaymentForm:        orPlaceholder(doc.PaymentForm, models.NotAvailable),
		PaymentMethod:      orPlaceholder(doc.PaymentMethod, models.NotAvailable),
		ValidationClass:    v.ValidationClass,
		Outcome:            v.Outcome,
		Label:              v.Label(),
		Score:              v.Score(),
		FiscalComment:      v.FiscalComment(),
		TechnicalNotes:     v.TechnicalNotes(),
		Codes:              diagnostic.Codes(v.Diagnostics),
	}
	if res.ExchangeRate.IsZero() {
		res.ExchangeRate = decimal.NewFromInt(1)
	}

	if rel := doc.Relation; rel != nil {
		res.HasRelation = true
		res.RelationType = orPlaceholder(strings.Join(rel.Codes(), ","), models.NotApplicable)
		res.RelatedUUIDs = rel.UUIDs
		if rel.Has(models.RelationSubstitution) {
			res.Substituted = models.Yes
			res.SubstitutionUUID = orPlaceholder(rel.FirstUUID(), models.NotAvailable)
		}
	}

	t := in.Taxes
	res.Subtotal = t.Subtotal
	res.BaseIVA16 = t.BaseIVA16
	res.BaseIVA8 = t.BaseIVA8
	res.BaseIVA0 = t.BaseIVA0
	res.BaseIVAExempt = t.BaseIVAExempt
	res.IVATransferred = t.IVATransferred
	res.IVAWithheld = t.IVAWithheld
	res.ISRWithheld = t.ISRWithheld
	res.IEPSTransferred = t.IEPSTransferred
	res.IEPSWithheld = t.IEPSWithheld
	res.LocalTransferred = t.LocalTransferred
	res.LocalWithheld = t.LocalWithheld

	if p := in.Payroll; p.Applicable {
		res.PayrollVersion = orPlaceholder(p.Version, models.NotApplicable)
		res.PayrollEarnings = p.Earnings
		res.PayrollDeductions = p.Deductions
		res.PayrollOtherPayments = p.OtherPayments
		res.PayrollISR = p.ISRWithheld
		res.Computed = p.Computed
		res.Declared = p.Declared
		res.Difference = p.Difference
		res.Breakdown = p.Breakdown()
	} else {
		res.Computed = t.Computed
		res.Declared = t.Declared
		res.Difference = t.Difference
		res.Breakdown = t.Breakdown()
	}
	if res.SATStatus == "" {
		res.SATStatus = string(satstatus.StateNotVerified)
	}
	return res
}

func withPlaceholders(p models.Party) models.Party {
	return models.Party{
		RFC:        orPlaceholder(p.RFC, models.NotAvailable),
		Name:       orPlaceholder(p.Name, models.NotAvailable),
		Regime:     orPlaceholder(p.Regime, models.NotAvailable),
		PostalCode: orPlaceholder(p.PostalCode, models.NotAvailable),
	}
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
