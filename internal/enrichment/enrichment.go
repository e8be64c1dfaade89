// Package enrichment applies the denylist and live SAT status checks to a
// classified verdict. Enrichment only ever downgrades a verdict.
package enrichment

import (
	"context"
	"strings"

	"fjacquet/cfdi-sentinel/internal/classifier"
	"fjacquet/cfdi-sentinel/internal/denylist"
	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/metrics"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/satstatus"
)

// Outcome carries the enrichment facts reported next to the verdict.
type Outcome struct {
	SATState           satstatus.State
	CancellationDetail string
	// IssuerListing describes the issuer's denylist entry, e.g. "69B (Definitivo)".
	IssuerListing   string
	ReceiverListing string
}

// Enricher holds the optional collaborators. Nil collaborators are skipped.
type Enricher struct {
	denylist denylist.Store
	status   satstatus.Checker
	metrics  *metrics.Metrics
	logger   logging.Logger
}

// Options configures an Enricher.
type Options struct {
	Denylist denylist.Store
	Status   satstatus.Checker
	Metrics  *metrics.Metrics
	Logger   logging.Logger
}

// New creates an Enricher.
func New(opts Options) *Enricher {
	return &Enricher{
		denylist: opts.Denylist,
		status:   opts.Status,
		metrics:  opts.Metrics,
		logger:   logging.OrDefault(opts.Logger),
	}
}

// Enabled reports whether any collaborator is configured.
func (e *Enricher) Enabled() bool {
	return e != nil && (e.denylist != nil || e.status != nil)
}

// Apply runs the denylist then the status check against v.
func (e *Enricher) Apply(ctx context.Context, doc *models.Document, v *classifier.Verdict) Outcome {
	out := Outcome{SATState: satstatus.StateNotVerified}
	if e == nil {
		return out
	}
	e.applyDenylist(ctx, doc, v, &out)
	e.applyStatus(ctx, doc, v, &out)
	return out
}

func (e *Enricher) applyDenylist(ctx context.Context, doc *models.Document, v *classifier.Verdict, out *Outcome) {
	if e.denylist == nil {
		return
	}

	if doc.Issuer.Checkable() {
		if rec, ok := e.lookup(ctx, doc.Issuer, v); ok {
			out.IssuerListing = listing(rec)
			switch {
			case rec.List == denylist.List69B && rec.Presumed():
				e.metrics.ObserveDenylistMatch(string(rec.List))
				v.Downgrade(models.OutcomeAlert, classifier.QualifierNone,
					diagnostic.New(diagnostic.CodeIssuer69BPresumed, diagnostic.ParamSituation, rec.Situation))
			case rec.List == denylist.List69B && rec.Active():
				e.metrics.ObserveDenylistMatch(string(rec.List))
				v.Downgrade(models.OutcomeNotUsable, classifier.QualifierRFC69B,
					diagnostic.New(diagnostic.CodeIssuer69B, diagnostic.ParamSituation, rec.Situation))
			case rec.List == denylist.ListEFOS:
				e.metrics.ObserveDenylistMatch(string(rec.List))
				v.Downgrade(models.OutcomeAlert, classifier.QualifierRFCEFOS, diagnostic.New(diagnostic.CodeIssuerEFOS))
			}
		}
	}

	if doc.Receiver.Checkable() {
		if rec, ok := e.lookup(ctx, doc.Receiver, v); ok {
			out.ReceiverListing = listing(rec)
			if rec.List == denylist.List69B && rec.Active() {
				e.metrics.ObserveDenylistMatch(string(rec.List))
				v.Add(diagnostic.New(diagnostic.CodeReceiver69B))
			}
		}
	}
}

func (e *Enricher) lookup(ctx context.Context, party models.Party, v *classifier.Verdict) (denylist.Record, bool) {
	rec, ok, err := e.denylist.Get(ctx, party.NormalizedRFC())
	if err != nil {
		e.logger.WithError(err).WithFields(logging.Field{Key: logging.FieldRFC, Value: party.NormalizedRFC()}).Warn("Denylist lookup failed")
		v.Add(diagnostic.New(diagnostic.CodeDenylistFailed, diagnostic.ParamError, err.Error()))
		return denylist.Record{}, false
	}
	return rec, ok
}

func listing(rec denylist.Record) string {
	if rec.Situation == "" {
		return string(rec.List)
	}
	return string(rec.List) + " (" + rec.Situation + ")"
}

func (e *Enricher) applyStatus(ctx context.Context, doc *models.Document, v *classifier.Verdict, out *Outcome) {
	if e.status == nil {
		return
	}
	uuid := doc.UUID()
	issuer, receiver := doc.Issuer.NormalizedRFC(), doc.Receiver.NormalizedRFC()
	if !satstatus.Checkable(uuid, issuer, receiver, doc.Total) {
		return
	}

	status, err := e.status.Check(ctx, uuid, issuer, receiver, doc.Total)
	if err != nil {
		e.metrics.ObserveStatusLookup(metrics.LookupError)
		e.logger.WithError(err).WithFields(logging.Field{Key: logging.FieldUUID, Value: uuid}).Warn("SAT status lookup failed")
		out.SATState = satstatus.StateConnectionError
		v.Add(diagnostic.New(diagnostic.CodeStatusUnavailable, diagnostic.ParamError, err.Error()))
		return
	}
	if status.Cached {
		e.metrics.ObserveStatusLookup(metrics.LookupHit)
	} else {
		e.metrics.ObserveStatusLookup(metrics.LookupMiss)
	}

	out.SATState = status.State
	out.CancellationDetail = strings.TrimSpace(status.CancellationStatus)
	switch status.State {
	case satstatus.StateCancelled:
		v.Downgrade(models.OutcomeNotUsable, classifier.QualifierCancelled,
			diagnostic.New(diagnostic.CodeCancelled, diagnostic.ParamDetail, out.CancellationDetail))
	case satstatus.StateNotFound:
		v.Add(diagnostic.New(diagnostic.CodeStatusNotFound))
	}
}
